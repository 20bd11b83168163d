// Package storage is the typed gateway to the relational store. All
// reads and writes of the service go through it; the sqlite unique
// constraints it migrates are the authoritative duplicate guard.
package storage

import (
	"context"

	"gorm.io/gorm"

	"murmur/models"
)

type Gateway struct {
	db  *gorm.DB
	obs *observability
}

func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{
		db:  db,
		obs: newObservability(),
	}
}

// UserFilter narrows FindUsers. Contains matches name or email.
type UserFilter struct {
	Contains string
	Limit    int
	Offset   int
}

// PostFilter narrows FindPosts. Published, when set, filters on the
// published flag; Contains matches title or content.
type PostFilter struct {
	AuthorID  uint
	Published *bool
	Contains  string
	Limit     int
	Offset    int
}

// CommentFilter narrows FindComments.
type CommentFilter struct {
	AuthorID      uint
	PostID        uint
	Contains      string
	PublishedOnly bool // restrict to comments on published posts
	Limit         int
	Offset        int
}

// LikeFilter narrows FindLikes.
type LikeFilter struct {
	UserID        uint
	PostID        uint
	PublishedOnly bool // restrict to likes on published posts
	Limit         int
	Offset        int
}

func applyWindow(tx *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	return tx
}

// ---------- User ----------

func (g *Gateway) CreateUser(ctx context.Context, user *models.User) error {
	return g.observe(ctx, "user.create", func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return translate(err, "User is not defined", "Email is already in use")
		}
		return nil
	})
}

func (g *Gateway) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := g.observe(ctx, "user.find_by_id", func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return translate(err, "User is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *Gateway) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := g.observe(ctx, "user.find_by_email", func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return translate(err, "User is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies the given column updates and returns the fresh row.
func (g *Gateway) UpdateUser(ctx context.Context, id uint, updates map[string]interface{}) (*models.User, error) {
	var user models.User
	err := g.observe(ctx, "user.update", func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return translate(res.Error, "User is not defined", "Email is already in use")
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "User is not defined", "")
		}
		if err := tx.First(&user, id).Error; err != nil {
			return translate(err, "User is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *Gateway) FindUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	var users []models.User
	err := g.observe(ctx, "user.find_many", func(tx *gorm.DB) error {
		q := tx.Model(&models.User{})
		if filter.Contains != "" {
			needle := "%" + filter.Contains + "%"
			q = q.Where("name LIKE ? OR email LIKE ?", needle, needle)
		}
		q = applyWindow(q, filter.Limit, filter.Offset)
		if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
			return translate(err, "", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ---------- Post ----------

func (g *Gateway) CreatePost(ctx context.Context, post *models.Post) error {
	return g.observe(ctx, "post.create", func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return translate(err, "Post is not defined", "")
		}
		return nil
	})
}

func (g *Gateway) FindPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := g.observe(ctx, "post.find_by_id", func(tx *gorm.DB) error {
		if err := tx.First(&post, id).Error; err != nil {
			return translate(err, "Post is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (g *Gateway) FindPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	var posts []models.Post
	err := g.observe(ctx, "post.find_many", func(tx *gorm.DB) error {
		q := tx.Model(&models.Post{})
		if filter.AuthorID != 0 {
			q = q.Where("author_id = ?", filter.AuthorID)
		}
		if filter.Published != nil {
			q = q.Where("published = ?", *filter.Published)
		}
		if filter.Contains != "" {
			needle := "%" + filter.Contains + "%"
			q = q.Where("title LIKE ? OR content LIKE ?", needle, needle)
		}
		q = applyWindow(q, filter.Limit, filter.Offset)
		if err := q.Order("created_at DESC").Find(&posts).Error; err != nil {
			return translate(err, "", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ---------- Comment ----------

func (g *Gateway) CreateComment(ctx context.Context, comment *models.Comment) error {
	return g.observe(ctx, "comment.create", func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return translate(err, "Comment is not defined", "")
		}
		return nil
	})
}

func (g *Gateway) FindCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := g.observe(ctx, "comment.find_by_id", func(tx *gorm.DB) error {
		if err := tx.First(&comment, id).Error; err != nil {
			return translate(err, "Comment is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (g *Gateway) UpdateComment(ctx context.Context, id uint, updates map[string]interface{}) (*models.Comment, error) {
	var comment models.Comment
	err := g.observe(ctx, "comment.update", func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return translate(res.Error, "Comment is not defined", "")
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "Comment is not defined", "")
		}
		if err := tx.First(&comment, id).Error; err != nil {
			return translate(err, "Comment is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (g *Gateway) DeleteComment(ctx context.Context, id uint) error {
	return g.observe(ctx, "comment.delete", func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Comment{}, id).Error; err != nil {
			return translate(err, "Comment is not defined", "")
		}
		return nil
	})
}

func (g *Gateway) FindComments(ctx context.Context, filter CommentFilter) ([]models.Comment, error) {
	var comments []models.Comment
	err := g.observe(ctx, "comment.find_many", func(tx *gorm.DB) error {
		q := tx.Model(&models.Comment{})
		if filter.AuthorID != 0 {
			q = q.Where("author_id = ?", filter.AuthorID)
		}
		if filter.PostID != 0 {
			q = q.Where("post_id = ?", filter.PostID)
		}
		if filter.Contains != "" {
			q = q.Where("content LIKE ?", "%"+filter.Contains+"%")
		}
		if filter.PublishedOnly {
			q = q.Where("post_id IN (?)", tx.Model(&models.Post{}).Select("id").Where("published = ?", true))
		}
		q = applyWindow(q, filter.Limit, filter.Offset)
		if err := q.Order("created_at DESC").Find(&comments).Error; err != nil {
			return translate(err, "", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ---------- Like ----------

func (g *Gateway) CreateLike(ctx context.Context, like *models.Like) error {
	return g.observe(ctx, "like.create", func(tx *gorm.DB) error {
		if err := tx.Create(like).Error; err != nil {
			return translate(err, "Like is not defined", "Post is already liked")
		}
		return nil
	})
}

func (g *Gateway) FindLikeByID(ctx context.Context, id uint) (*models.Like, error) {
	var like models.Like
	err := g.observe(ctx, "like.find_by_id", func(tx *gorm.DB) error {
		if err := tx.First(&like, id).Error; err != nil {
			return translate(err, "Like is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// FindLikeByUserAndPost looks up the unique (user, post) pair.
func (g *Gateway) FindLikeByUserAndPost(ctx context.Context, userID, postID uint) (*models.Like, error) {
	var like models.Like
	err := g.observe(ctx, "like.find_by_user_post", func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error; err != nil {
			return translate(err, "Like is not defined", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (g *Gateway) DeleteLike(ctx context.Context, id uint) error {
	return g.observe(ctx, "like.delete", func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Like{}, id).Error; err != nil {
			return translate(err, "Like is not defined", "")
		}
		return nil
	})
}

func (g *Gateway) FindLikes(ctx context.Context, filter LikeFilter) ([]models.Like, error) {
	var likes []models.Like
	err := g.observe(ctx, "like.find_many", func(tx *gorm.DB) error {
		q := tx.Model(&models.Like{})
		if filter.UserID != 0 {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.PostID != 0 {
			q = q.Where("post_id = ?", filter.PostID)
		}
		if filter.PublishedOnly {
			q = q.Where("post_id IN (?)", tx.Model(&models.Post{}).Select("id").Where("published = ?", true))
		}
		q = applyWindow(q, filter.Limit, filter.Offset)
		if err := q.Order("created_at DESC").Find(&likes).Error; err != nil {
			return translate(err, "", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return likes, nil
}
