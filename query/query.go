// Package query implements the read paths. Public listings expose only
// published posts and only comments/likes attached to published posts;
// the my* listings are scoped to the authenticated caller.
package query

import (
	"context"
	"net/http"

	"murmur/auth"
	"murmur/models"
	"murmur/storage"
)

type Module struct {
	store *storage.Gateway
	guard *auth.Guard
}

func NewModule(store *storage.Gateway, guard *auth.Guard) *Module {
	return &Module{store: store, guard: guard}
}

// ListArgs are the optional windowing/filter arguments shared by the
// list queries.
type ListArgs struct {
	Limit    int
	Offset   int
	Contains string
}

// PostView is a post with its markdown content rendered for display.
type PostView struct {
	models.Post
	ContentHTML string `json:"content_html"`
}

func toPostViews(posts []models.Post) []PostView {
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, PostView{Post: p, ContentHTML: renderMarkdown(p.Content)})
	}
	return views
}

func (q *Module) Users(ctx context.Context, args ListArgs) ([]models.User, error) {
	return q.store.FindUsers(ctx, storage.UserFilter{
		Contains: args.Contains,
		Limit:    args.Limit,
		Offset:   args.Offset,
	})
}

func (q *Module) Posts(ctx context.Context, args ListArgs) ([]PostView, error) {
	published := true
	posts, err := q.store.FindPosts(ctx, storage.PostFilter{
		Published: &published,
		Contains:  args.Contains,
		Limit:     args.Limit,
		Offset:    args.Offset,
	})
	if err != nil {
		return nil, err
	}
	return toPostViews(posts), nil
}

func (q *Module) Comments(ctx context.Context, args ListArgs) ([]models.Comment, error) {
	return q.store.FindComments(ctx, storage.CommentFilter{
		Contains:      args.Contains,
		PublishedOnly: true,
		Limit:         args.Limit,
		Offset:        args.Offset,
	})
}

func (q *Module) Likes(ctx context.Context, args ListArgs) ([]models.Like, error) {
	return q.store.FindLikes(ctx, storage.LikeFilter{
		PublishedOnly: true,
		Limit:         args.Limit,
		Offset:        args.Offset,
	})
}

// Me returns the authenticated caller's own profile.
func (q *Module) Me(ctx context.Context, r *http.Request) (*models.User, error) {
	userID, err := q.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	return q.store.FindUserByID(ctx, userID)
}

// MyPosts lists all of the caller's posts, drafts included.
func (q *Module) MyPosts(ctx context.Context, r *http.Request, args ListArgs) ([]PostView, error) {
	userID, err := q.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	posts, err := q.store.FindPosts(ctx, storage.PostFilter{
		AuthorID: userID,
		Contains: args.Contains,
		Limit:    args.Limit,
		Offset:   args.Offset,
	})
	if err != nil {
		return nil, err
	}
	return toPostViews(posts), nil
}

func (q *Module) MyComments(ctx context.Context, r *http.Request, args ListArgs) ([]models.Comment, error) {
	userID, err := q.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	return q.store.FindComments(ctx, storage.CommentFilter{
		AuthorID: userID,
		Contains: args.Contains,
		Limit:    args.Limit,
		Offset:   args.Offset,
	})
}

func (q *Module) MyLikes(ctx context.Context, r *http.Request, args ListArgs) ([]models.Like, error) {
	userID, err := q.guard.CurrentUser(r)
	if err != nil {
		return nil, err
	}
	return q.store.FindLikes(ctx, storage.LikeFilter{
		UserID: userID,
		Limit:  args.Limit,
		Offset: args.Offset,
	})
}
