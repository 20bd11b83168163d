package storage

import (
	"context"

	"gorm.io/gorm"

	"murmur/models"
)

// Op is one step of an atomic batch. Batches are built as an ordered
// list of ops and submitted to RunTransaction; results are bound from
// the batch's return value, never from variables captured by the steps.
type Op struct {
	Name string
	run  func(tx *gorm.DB) (interface{}, error)
}

// RunTransaction executes the ops in order inside a single storage
// transaction. Any op error aborts the batch and rolls back every
// prior write; partial state is never observable.
func (g *Gateway) RunTransaction(ctx context.Context, ops ...Op) ([]interface{}, error) {
	results := make([]interface{}, 0, len(ops))
	err := g.observe(ctx, "transaction", func(tx *gorm.DB) error {
		return tx.Transaction(func(txn *gorm.DB) error {
			for _, op := range ops {
				res, err := op.run(txn)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteLikesByUser(userID uint) Op {
	return Op{Name: "like.delete_by_user", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Where("user_id = ?", userID).Delete(&models.Like{})
		if res.Error != nil {
			return nil, translate(res.Error, "", "")
		}
		return res.RowsAffected, nil
	}}
}

func DeleteLikesByPost(postID uint) Op {
	return Op{Name: "like.delete_by_post", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Where("post_id = ?", postID).Delete(&models.Like{})
		if res.Error != nil {
			return nil, translate(res.Error, "", "")
		}
		return res.RowsAffected, nil
	}}
}

func DeleteCommentsByAuthor(authorID uint) Op {
	return Op{Name: "comment.delete_by_author", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Where("author_id = ?", authorID).Delete(&models.Comment{})
		if res.Error != nil {
			return nil, translate(res.Error, "", "")
		}
		return res.RowsAffected, nil
	}}
}

func DeleteCommentsByPost(postID uint) Op {
	return Op{Name: "comment.delete_by_post", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Where("post_id = ?", postID).Delete(&models.Comment{})
		if res.Error != nil {
			return nil, translate(res.Error, "", "")
		}
		return res.RowsAffected, nil
	}}
}

func DeletePostsByAuthor(authorID uint) Op {
	return Op{Name: "post.delete_by_author", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Where("author_id = ?", authorID).Delete(&models.Post{})
		if res.Error != nil {
			return nil, translate(res.Error, "", "")
		}
		return res.RowsAffected, nil
	}}
}

func DeletePostRow(id uint) Op {
	return Op{Name: "post.delete", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return nil, translate(res.Error, "Post is not defined", "")
		}
		if res.RowsAffected == 0 {
			return nil, translate(gorm.ErrRecordNotFound, "Post is not defined", "")
		}
		return res.RowsAffected, nil
	}}
}

func DeleteUserRow(id uint) Op {
	return Op{Name: "user.delete", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return nil, translate(res.Error, "User is not defined", "")
		}
		if res.RowsAffected == 0 {
			return nil, translate(gorm.ErrRecordNotFound, "User is not defined", "")
		}
		return res.RowsAffected, nil
	}}
}

// UpdatePostRow updates the post and yields the fresh row as the op result.
func UpdatePostRow(id uint, updates map[string]interface{}) Op {
	return Op{Name: "post.update", run: func(tx *gorm.DB) (interface{}, error) {
		res := tx.Model(&models.Post{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translate(res.Error, "Post is not defined", "")
		}
		if res.RowsAffected == 0 {
			return nil, translate(gorm.ErrRecordNotFound, "Post is not defined", "")
		}
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return nil, translate(err, "Post is not defined", "")
		}
		return &post, nil
	}}
}
