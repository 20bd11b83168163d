package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"murmur/apperr"
	"murmur/auth"
	"murmur/models"
	"murmur/storage"
	"murmur/token"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{})
	return db
}

type testEnv struct {
	db     *gorm.DB
	tokens *token.Service
	module *Module
}

func setupTestEnv() *testEnv {
	db := setupTestDB()
	store := storage.NewGateway(db)
	tokens := token.NewService([]byte("query-test-secret"))
	return &testEnv{
		db:     db,
		tokens: tokens,
		module: NewModule(store, auth.NewGuard(tokens)),
	}
}

func (e *testEnv) requestFor(t *testing.T, userID uint) *http.Request {
	t.Helper()
	tok, err := e.tokens.Issue(userID)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func (e *testEnv) createUser(email string) *models.User {
	user := &models.User{Name: "Test User", Email: email, Password: "hash"}
	e.db.Create(user)
	return user
}

func (e *testEnv) createPost(authorID uint, title string, published bool) *models.Post {
	post := &models.Post{Title: title, Content: "**bold** text", Published: published, AuthorID: authorID}
	e.db.Create(post)
	return post
}

func TestPosts_PublishedOnlyAndRendered(t *testing.T) {
	env := setupTestEnv()
	user := env.createUser("a@example.com")
	env.createPost(user.ID, "public", true)
	env.createPost(user.ID, "draft", false)

	posts, err := env.module.Posts(context.Background(), ListArgs{})
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, "public", posts[0].Title)
	assert.Contains(t, posts[0].ContentHTML, "<strong>bold</strong>")
}

func TestPosts_ContainsFilter(t *testing.T) {
	env := setupTestEnv()
	user := env.createUser("a@example.com")
	env.createPost(user.ID, "gophers at work", true)
	env.createPost(user.ID, "unrelated", true)

	posts, err := env.module.Posts(context.Background(), ListArgs{Contains: "gopher"})
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, "gophers at work", posts[0].Title)
}

func TestComments_OnlyOnPublishedPosts(t *testing.T) {
	env := setupTestEnv()
	user := env.createUser("a@example.com")
	visible := env.createPost(user.ID, "public", true)
	hidden := env.createPost(user.ID, "draft", false)
	env.db.Create(&models.Comment{Content: "seen", AuthorID: user.ID, PostID: visible.ID})
	env.db.Create(&models.Comment{Content: "unseen", AuthorID: user.ID, PostID: hidden.ID})

	comments, err := env.module.Comments(context.Background(), ListArgs{})
	assert.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, "seen", comments[0].Content)
}

func TestLikes_OnlyOnPublishedPosts(t *testing.T) {
	env := setupTestEnv()
	user := env.createUser("a@example.com")
	visible := env.createPost(user.ID, "public", true)
	hidden := env.createPost(user.ID, "draft", false)
	env.db.Create(&models.Like{UserID: user.ID, PostID: visible.ID})
	env.db.Create(&models.Like{UserID: user.ID, PostID: hidden.ID})

	likes, err := env.module.Likes(context.Background(), ListArgs{})
	assert.NoError(t, err)
	assert.Len(t, likes, 1)
	assert.Equal(t, visible.ID, likes[0].PostID)
}

func TestUsers_ContainsMatchesNameOrEmail(t *testing.T) {
	env := setupTestEnv()
	alice := &models.User{Name: "Alice", Email: "alice@example.com", Password: "hash"}
	bob := &models.User{Name: "Bob", Email: "bob@example.com", Password: "hash"}
	env.db.Create(alice)
	env.db.Create(bob)

	users, err := env.module.Users(context.Background(), ListArgs{Contains: "alice"})
	assert.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
}

func TestMe(t *testing.T) {
	env := setupTestEnv()
	user := env.createUser("me@example.com")

	me, err := env.module.Me(context.Background(), env.requestFor(t, user.ID))
	assert.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
}

func TestMe_RequiresAuth(t *testing.T) {
	env := setupTestEnv()

	_, err := env.module.Me(context.Background(), httptest.NewRequest("GET", "/", nil))
	assert.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestMyPosts_IncludesDraftsScopedToCaller(t *testing.T) {
	env := setupTestEnv()
	alice := env.createUser("alice@example.com")
	bob := env.createUser("bob@example.com")
	env.createPost(alice.ID, "mine published", true)
	env.createPost(alice.ID, "mine draft", false)
	env.createPost(bob.ID, "not mine", true)

	posts, err := env.module.MyPosts(context.Background(), env.requestFor(t, alice.ID), ListArgs{})
	assert.NoError(t, err)
	assert.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, alice.ID, p.AuthorID)
	}
}

func TestMyCommentsAndMyLikes_ScopedToCaller(t *testing.T) {
	env := setupTestEnv()
	alice := env.createUser("alice@example.com")
	bob := env.createUser("bob@example.com")
	post := env.createPost(alice.ID, "p", true)
	env.db.Create(&models.Comment{Content: "a", AuthorID: alice.ID, PostID: post.ID})
	env.db.Create(&models.Comment{Content: "b", AuthorID: bob.ID, PostID: post.ID})
	env.db.Create(&models.Like{UserID: alice.ID, PostID: post.ID})
	env.db.Create(&models.Like{UserID: bob.ID, PostID: post.ID})

	req := env.requestFor(t, alice.ID)

	comments, err := env.module.MyComments(context.Background(), req, ListArgs{})
	assert.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, alice.ID, comments[0].AuthorID)

	likes, err := env.module.MyLikes(context.Background(), req, ListArgs{})
	assert.NoError(t, err)
	assert.Len(t, likes, 1)
	assert.Equal(t, alice.ID, likes[0].UserID)
}
