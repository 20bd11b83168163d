package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"murmur/auth"
	"murmur/models"
	"murmur/mutations"
	"murmur/pubsub"
	"murmur/query"
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

func setupTestRouter() *gin.Engine {
	db := setupTestDB()
	store := storage.NewGateway(db)
	tokens := token.NewService([]byte("api-test-secret"))
	guard := auth.NewGuard(tokens)
	broker := pubsub.NewBroker()

	mutationModule := mutations.NewModule(store, guard, tokens, broker)
	queryModule := query.NewModule(store, guard)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAPIModule(mutationModule, queryModule, broker).RegisterRoutes(router)
	return router
}

func perform(router *gin.Engine, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signupAndLogin(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w := perform(router, "POST", "/signup", "", gin.H{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = perform(router, "POST", "/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSignupAndLogin(t *testing.T) {
	router := setupTestRouter()
	tok := signupAndLogin(t, router, "alice@example.com")
	assert.NotEmpty(t, tok)
}

func TestSignup_ShortPassword(t *testing.T) {
	router := setupTestRouter()

	w := perform(router, "POST", "/signup", "", gin.H{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	router := setupTestRouter()
	signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "POST", "/signup", "", gin.H{
		"name":     "Impostor",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	router := setupTestRouter()
	signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "POST", "/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePost_RequiresToken(t *testing.T) {
	router := setupTestRouter()

	w := perform(router, "POST", "/posts", "", gin.H{"title": "P"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePostAndPublicListing(t *testing.T) {
	router := setupTestRouter()
	tok := signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "POST", "/posts", tok, gin.H{
		"title":     "Published",
		"content":   "hello",
		"published": true,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = perform(router, "POST", "/posts", tok, gin.H{
		"title": "Draft",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = perform(router, "GET", "/posts", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var posts []query.PostView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	assert.Len(t, posts, 1)
	assert.Equal(t, "Published", posts[0].Title)
}

func TestDuplicateLikeIsConflict(t *testing.T) {
	router := setupTestRouter()
	tok := signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "POST", "/posts", tok, gin.H{"title": "P", "published": true})
	require.Equal(t, http.StatusCreated, w.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = perform(router, "POST", "/likes", tok, gin.H{"post_id": post.ID})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = perform(router, "POST", "/likes", tok, gin.H{"post_id": post.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdatePost_NonOwnerIsForbidden(t *testing.T) {
	router := setupTestRouter()
	aliceTok := signupAndLogin(t, router, "alice@example.com")
	bobTok := signupAndLogin(t, router, "bob@example.com")

	w := perform(router, "POST", "/posts", aliceTok, gin.H{"title": "P", "published": true})
	require.Equal(t, http.StatusCreated, w.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	path := fmt.Sprintf("/posts/%d", post.ID)
	w = perform(router, "PATCH", path, bobTok, gin.H{"title": "hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(router, "PATCH", path, aliceTok, gin.H{"title": "renamed"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCommentOnMissingPostIs404(t *testing.T) {
	router := setupTestRouter()
	tok := signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "POST", "/comments", tok, gin.H{"content": "hi", "post_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMe(t *testing.T) {
	router := setupTestRouter()
	tok := signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "GET", "/me", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var me models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me.Email)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestDeleteUserRemovesAccount(t *testing.T) {
	router := setupTestRouter()
	tok := signupAndLogin(t, router, "alice@example.com")

	w := perform(router, "DELETE", "/me", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// account gone: token subject no longer resolves
	w = perform(router, "GET", "/me", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
