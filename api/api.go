// Package api exposes the mutation, query and subscription surfaces
// over HTTP. It owns no business rules: it decodes arguments, hands the
// inbound request to the services, and maps error kinds to statuses.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"murmur/apperr"
	"murmur/mutations"
	"murmur/pubsub"
	"murmur/query"
)

type APIModule struct {
	mutations *mutations.Module
	queries   *query.Module
	broker    *pubsub.Broker
}

func NewAPIModule(mutationModule *mutations.Module, queryModule *query.Module, broker *pubsub.Broker) *APIModule {
	return &APIModule{
		mutations: mutationModule,
		queries:   queryModule,
		broker:    broker,
	}
}

func (a *APIModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/signup", a.createUser)
	router.POST("/login", a.login)

	router.GET("/users", a.listUsers)
	router.GET("/posts", a.listPosts)
	router.GET("/comments", a.listComments)
	router.GET("/likes", a.listLikes)

	me := router.Group("/me")
	{
		me.GET("", a.me)
		me.PATCH("", a.updateUser)
		me.DELETE("", a.deleteUser)
		me.GET("/posts", a.myPosts)
		me.GET("/comments", a.myComments)
		me.GET("/likes", a.myLikes)
	}

	router.POST("/posts", a.createPost)
	router.PATCH("/posts/:id", a.updatePost)
	router.DELETE("/posts/:id", a.deletePost)

	router.POST("/comments", a.createComment)
	router.PATCH("/comments/:id", a.updateComment)
	router.DELETE("/comments/:id", a.deleteComment)

	router.POST("/likes", a.createLike)
	router.DELETE("/likes/:id", a.deleteLike)

	router.GET("/subscriptions/posts", a.streamPosts)
	router.GET("/subscriptions/posts/:id/comments", a.streamComments)
	router.GET("/subscriptions/posts/:id/likes", a.streamLikes)
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"kind":  apperr.KindOf(err),
		"error": err.Error(),
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, apperr.Validation("Invalid id"))
		return 0, false
	}
	return uint(id), true
}

func listArgs(c *gin.Context) query.ListArgs {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return query.ListArgs{
		Limit:    limit,
		Offset:   offset,
		Contains: c.Query("contains"),
	}
}

// ---------- mutations ----------

func (a *APIModule) createUser(c *gin.Context) {
	var in mutations.CreateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	user, err := a.mutations.CreateUser(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (a *APIModule) login(c *gin.Context) {
	var in mutations.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	tok, user, err := a.mutations.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": user})
}

func (a *APIModule) createPost(c *gin.Context) {
	var in mutations.CreatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	post, err := a.mutations.CreatePost(c.Request.Context(), c.Request, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (a *APIModule) createComment(c *gin.Context) {
	var in mutations.CreateCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	comment, err := a.mutations.CreateComment(c.Request.Context(), c.Request, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (a *APIModule) createLike(c *gin.Context) {
	var in mutations.CreateLikeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	like, err := a.mutations.CreateLike(c.Request.Context(), c.Request, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, like)
}

func (a *APIModule) updateUser(c *gin.Context) {
	var in mutations.UpdateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	user, err := a.mutations.UpdateUser(c.Request.Context(), c.Request, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *APIModule) updatePost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in mutations.UpdatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	post, err := a.mutations.UpdatePost(c.Request.Context(), c.Request, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (a *APIModule) updateComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in mutations.UpdateCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, apperr.Validation("Invalid request body"))
		return
	}
	comment, err := a.mutations.UpdateComment(c.Request.Context(), c.Request, id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (a *APIModule) deleteUser(c *gin.Context) {
	user, err := a.mutations.DeleteUser(c.Request.Context(), c.Request)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *APIModule) deletePost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := a.mutations.DeletePost(c.Request.Context(), c.Request, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (a *APIModule) deleteComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	comment, err := a.mutations.DeleteComment(c.Request.Context(), c.Request, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (a *APIModule) deleteLike(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	like, err := a.mutations.DeleteLike(c.Request.Context(), c.Request, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, like)
}

// ---------- queries ----------

func (a *APIModule) listUsers(c *gin.Context) {
	users, err := a.queries.Users(c.Request.Context(), listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *APIModule) listPosts(c *gin.Context) {
	posts, err := a.queries.Posts(c.Request.Context(), listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (a *APIModule) listComments(c *gin.Context) {
	comments, err := a.queries.Comments(c.Request.Context(), listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (a *APIModule) listLikes(c *gin.Context) {
	likes, err := a.queries.Likes(c.Request.Context(), listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, likes)
}

func (a *APIModule) me(c *gin.Context) {
	user, err := a.queries.Me(c.Request.Context(), c.Request)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *APIModule) myPosts(c *gin.Context) {
	posts, err := a.queries.MyPosts(c.Request.Context(), c.Request, listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (a *APIModule) myComments(c *gin.Context) {
	comments, err := a.queries.MyComments(c.Request.Context(), c.Request, listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (a *APIModule) myLikes(c *gin.Context) {
	likes, err := a.queries.MyLikes(c.Request.Context(), c.Request, listArgs(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, likes)
}
