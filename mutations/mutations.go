// Package mutations implements the state-changing operations of the
// service. Every operation validates its input, resolves and authorizes
// the caller, touches storage, and publishes an event when something
// was created. Pre-write checks give fast friendly errors; the storage
// unique constraints remain the authoritative guard under concurrency.
package mutations

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"murmur/apperr"
	"murmur/auth"
	"murmur/credentials"
	"murmur/models"
	"murmur/pubsub"
	"murmur/storage"
	"murmur/token"
)

type Module struct {
	store    *storage.Gateway
	guard    *auth.Guard
	tokens   *token.Service
	broker   *pubsub.Broker
	validate *validator.Validate
}

func NewModule(store *storage.Gateway, guard *auth.Guard, tokens *token.Service, broker *pubsub.Broker) *Module {
	return &Module{
		store:    store,
		guard:    guard,
		tokens:   tokens,
		broker:   broker,
		validate: validator.New(),
	}
}

type CreateUserInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Bio      string `json:"bio"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreatePostInput struct {
	Title     string `json:"title" validate:"required"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
}

type CreateCommentInput struct {
	Content string `json:"content" validate:"required"`
	PostID  uint   `json:"post_id" validate:"required"`
}

type CreateLikeInput struct {
	PostID uint `json:"post_id" validate:"required"`
}

type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
}

type UpdatePostInput struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
}

type UpdateCommentInput struct {
	Content string `json:"content" validate:"required"`
}

func (m *Module) validateInput(in interface{}) error {
	if err := m.validate.Struct(in); err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid input", err)
	}
	return nil
}

// emailTaken is the friendly pre-check; the unique index on users.email
// is what actually prevents duplicates under concurrent requests.
func (m *Module) emailTaken(ctx context.Context, email string, selfID uint) error {
	existing, err := m.store.FindUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return apperr.Conflict("Email is already in use")
	}
	return nil
}

// CreateUser registers a new account. No authentication required.
func (m *Module) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := m.validateInput(in); err != nil {
		return nil, err
	}
	if err := credentials.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := m.emailTaken(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := credentials.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Bio:      in.Bio,
	}
	if err := m.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh bearer token.
func (m *Module) Login(ctx context.Context, in LoginInput) (string, *models.User, error) {
	if err := m.validateInput(in); err != nil {
		return "", nil, err
	}

	user, err := m.store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", nil, apperr.Auth("Incorrect login data")
		}
		return "", nil, err
	}
	if err := credentials.CheckPassword(in.Password, user.Password); err != nil {
		return "", nil, err
	}

	tok, err := m.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return tok, user, nil
}

// CreatePost creates a post owned by the caller and announces it.
func (m *Module) CreatePost(ctx context.Context, r *http.Request, in CreatePostInput) (*models.Post, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	if err := m.validateInput(in); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		Published: in.Published,
		AuthorID:  userID,
	}
	if err := m.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	m.broker.Publish(pubsub.TopicPostCreated, pubsub.Event{
		Mutation: pubsub.MutationCreated,
		Data:     post,
	})
	return post, nil
}

// CreateComment comments on an existing post as the caller.
func (m *Module) CreateComment(ctx context.Context, r *http.Request, in CreateCommentInput) (*models.Comment, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	if err := m.validateInput(in); err != nil {
		return nil, err
	}
	if _, err := m.store.FindPostByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content:  in.Content,
		AuthorID: userID,
		PostID:   in.PostID,
	}
	if err := m.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	m.broker.Publish(pubsub.CommentTopic(comment.PostID), pubsub.Event{
		Mutation: pubsub.MutationCreated,
		Data:     comment,
	})
	return comment, nil
}

// CreateLike likes an existing post once per caller. A second like on
// the same post is a conflict.
func (m *Module) CreateLike(ctx context.Context, r *http.Request, in CreateLikeInput) (*models.Like, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	if err := m.validateInput(in); err != nil {
		return nil, err
	}
	if _, err := m.store.FindPostByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	// friendly pre-check; the composite unique index settles races
	if _, err := m.store.FindLikeByUserAndPost(ctx, userID, in.PostID); err == nil {
		return nil, apperr.Conflict("Post is already liked")
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	like := &models.Like{
		UserID: userID,
		PostID: in.PostID,
	}
	if err := m.store.CreateLike(ctx, like); err != nil {
		return nil, err
	}

	m.broker.Publish(pubsub.LikeTopic(like.PostID), pubsub.Event{
		Mutation: pubsub.MutationCreated,
		Data:     like,
	})
	return like, nil
}

// UpdateUser updates the caller's own profile fields.
func (m *Module) UpdateUser(ctx context.Context, r *http.Request, in UpdateUserInput) (*models.User, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	if err := m.validateInput(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Email != nil {
		if err := m.emailTaken(ctx, *in.Email, userID); err != nil {
			return nil, err
		}
		updates["email"] = *in.Email
	}
	if in.Password != nil {
		if err := credentials.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := credentials.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}

	if len(updates) == 0 {
		return m.store.FindUserByID(ctx, userID)
	}
	return m.store.UpdateUser(ctx, userID, updates)
}

// UpdatePost updates a post the caller owns. Unpublishing a published
// post deletes its comments and likes in the same atomic batch as the
// update; no intermediate state is observable.
func (m *Module) UpdatePost(ctx context.Context, r *http.Request, postID uint, in UpdatePostInput) (*models.Post, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	if err := m.validateInput(in); err != nil {
		return nil, err
	}

	post, err := m.store.FindPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := m.guard.AssertOwner(post.AuthorID, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.Published != nil {
		updates["published"] = *in.Published
	}
	if len(updates) == 0 {
		return post, nil
	}

	unpublishing := post.Published && in.Published != nil && !*in.Published

	ops := []storage.Op{}
	if unpublishing {
		ops = append(ops,
			storage.DeleteCommentsByPost(postID),
			storage.DeleteLikesByPost(postID),
		)
	}
	ops = append(ops, storage.UpdatePostRow(postID, updates))

	results, err := m.store.RunTransaction(ctx, ops...)
	if err != nil {
		return nil, err
	}
	return results[len(results)-1].(*models.Post), nil
}

// UpdateComment updates a comment the caller owns.
func (m *Module) UpdateComment(ctx context.Context, r *http.Request, commentID uint, in UpdateCommentInput) (*models.Comment, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	if err := m.validateInput(in); err != nil {
		return nil, err
	}

	comment, err := m.store.FindCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := m.guard.AssertOwner(comment.AuthorID, userID); err != nil {
		return nil, err
	}

	return m.store.UpdateComment(ctx, commentID, map[string]interface{}{
		"content": in.Content,
	})
}

// DeleteUser removes the caller's account and everything it owns:
// likes, then comments, then posts, then the user row, atomically.
func (m *Module) DeleteUser(ctx context.Context, r *http.Request) (*models.User, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}

	user, err := m.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, err = m.store.RunTransaction(ctx,
		storage.DeleteLikesByUser(userID),
		storage.DeleteCommentsByAuthor(userID),
		storage.DeletePostsByAuthor(userID),
		storage.DeleteUserRow(userID),
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeletePost removes a post the caller owns together with its likes
// and comments, atomically.
func (m *Module) DeletePost(ctx context.Context, r *http.Request, postID uint) (*models.Post, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}

	post, err := m.store.FindPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := m.guard.AssertOwner(post.AuthorID, userID); err != nil {
		return nil, err
	}

	_, err = m.store.RunTransaction(ctx,
		storage.DeleteLikesByPost(postID),
		storage.DeleteCommentsByPost(postID),
		storage.DeletePostRow(postID),
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// DeleteComment removes a comment the caller owns.
func (m *Module) DeleteComment(ctx context.Context, r *http.Request, commentID uint) (*models.Comment, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}

	comment, err := m.store.FindCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := m.guard.AssertOwner(comment.AuthorID, userID); err != nil {
		return nil, err
	}

	if err := m.store.DeleteComment(ctx, commentID); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteLike removes a like the caller owns.
func (m *Module) DeleteLike(ctx context.Context, r *http.Request, likeID uint) (*models.Like, error) {
	userID, err := m.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}

	like, err := m.store.FindLikeByID(ctx, likeID)
	if err != nil {
		return nil, err
	}
	if err := m.guard.AssertOwner(like.UserID, userID); err != nil {
		return nil, err
	}

	if err := m.store.DeleteLike(ctx, likeID); err != nil {
		return nil, err
	}
	return like, nil
}
