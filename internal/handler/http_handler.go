package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/middleware"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/service"
	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/response"
)

// Handler handles HTTP requests for the microblog service.
type Handler struct {
	users          service.UserService
	graph          service.SocialGraphService
	timeline       service.TimelineService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(users service.UserService, graph service.SocialGraphService, timeline service.TimelineService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		users:          users,
		graph:          graph,
		timeline:       timeline,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.Refresh)
			authGroup.POST("/logout", h.authMiddleware.RequireAuth(), h.Logout)
		}

		users := api.Group("/users")
		{
			users.PUT("/me", h.authMiddleware.RequireAuth(), h.UpdateProfile)
			users.GET("/:username", h.GetProfile)
			users.GET("/:username/posts", h.UserPosts)
			users.GET("/:username/followers", h.Followers)
			users.GET("/:username/following", h.Followed)
			users.POST("/:username/follow", h.authMiddleware.RequireAuth(), h.Follow)
			users.DELETE("/:username/follow", h.authMiddleware.RequireAuth(), h.Unfollow)
		}

		api.POST("/posts", h.authMiddleware.RequireAuth(), h.CreatePost)
		api.GET("/feed", h.authMiddleware.RequireAuth(), h.Feed)
		api.GET("/explore", h.Explore)
	}
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.Register(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			response.Conflict(c, err.Error())
		default:
			l.Error().Err(err).Msg("register failed")
			response.InternalError(c, "failed to register user")
		}
		return
	}

	response.Created(c, resp)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.Login(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Unauthorized(c, "invalid username or password")
		default:
			l.Error().Err(err).Msg("login failed")
			response.InternalError(c, "failed to log in")
		}
		return
	}

	response.Success(c, resp)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.Refresh(ctx, &req)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}

	response.Success(c, resp)
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.users.Logout(ctx, userID); err != nil {
		response.InternalError(c, "failed to log out")
		return
	}

	response.Success(c, gin.H{"message": "logged out"})
}

// GetProfile handles GET /api/v1/users/:username.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	username := c.Param("username")

	profile, err := h.users.GetProfile(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Str(log.FieldUsername, username).Msg("get profile failed")
			response.InternalError(c, "failed to get profile")
		}
		return
	}

	response.Success(c, profile)
}

// UpdateProfile handles PUT /api/v1/users/me.
func (h *Handler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.UpdateProfile(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			response.Conflict(c, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("update profile failed")
			response.InternalError(c, "failed to update profile")
		}
		return
	}

	response.Success(c, resp)
}

// Follow handles POST /api/v1/users/:username/follow.
// The authenticated user follows the target user. Repeats are no-ops.
func (h *Handler) Follow(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	followerID := middleware.GetUserID(c)
	if followerID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	targetUsername := c.Param("username")

	if err := h.graph.Follow(ctx, followerID, targetUsername); err != nil {
		switch {
		case errors.Is(err, service.ErrSelfFollow):
			response.BadRequest(c, "cannot follow yourself")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).
				Str(log.FieldFollowerID, followerID).
				Str(log.FieldUsername, targetUsername).
				Msg("follow failed")
			response.InternalError(c, "failed to follow user")
		}
		return
	}

	response.Created(c, gin.H{"message": "following " + targetUsername})
}

// Unfollow handles DELETE /api/v1/users/:username/follow. Repeats are no-ops.
func (h *Handler) Unfollow(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	followerID := middleware.GetUserID(c)
	if followerID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	targetUsername := c.Param("username")

	if err := h.graph.Unfollow(ctx, followerID, targetUsername); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).
				Str(log.FieldFollowerID, followerID).
				Str(log.FieldUsername, targetUsername).
				Msg("unfollow failed")
			response.InternalError(c, "failed to unfollow user")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// Followers handles GET /api/v1/users/:username/followers.
func (h *Handler) Followers(c *gin.Context) {
	h.listUsers(c, h.graph.Followers)
}

// Followed handles GET /api/v1/users/:username/following.
func (h *Handler) Followed(c *gin.Context) {
	h.listUsers(c, h.graph.Followed)
}

func (h *Handler) listUsers(c *gin.Context, list func(ctx context.Context, username string, limit, offset int) ([]domain.UserResponse, error)) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	username := c.Param("username")
	limit, offset := pagination(c)

	users, err := list(ctx, username, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Str(log.FieldUsername, username).Msg("list users failed")
			response.InternalError(c, "failed to list users")
		}
		return
	}

	response.Success(c, gin.H{"users": users})
}

// CreatePost handles POST /api/v1/posts.
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.timeline.CreatePost(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("create post failed")
			response.InternalError(c, "failed to create post")
		}
		return
	}

	response.Created(c, post)
}

// Feed handles GET /api/v1/feed.
func (h *Handler) Feed(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	limit, offset := pagination(c)

	posts, err := h.timeline.Feed(ctx, userID, limit, offset)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("feed failed")
		response.InternalError(c, "failed to load feed")
		return
	}

	response.Success(c, gin.H{"posts": posts})
}

// Explore handles GET /api/v1/explore.
func (h *Handler) Explore(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	limit, offset := pagination(c)

	posts, err := h.timeline.Explore(ctx, limit, offset)
	if err != nil {
		l.Error().Err(err).Msg("explore failed")
		response.InternalError(c, "failed to load explore")
		return
	}

	response.Success(c, gin.H{"posts": posts})
}

// UserPosts handles GET /api/v1/users/:username/posts.
func (h *Handler) UserPosts(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	username := c.Param("username")
	limit, offset := pagination(c)

	posts, err := h.timeline.UserPosts(ctx, username, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l.Error().Err(err).Str(log.FieldUsername, username).Msg("list user posts failed")
			response.InternalError(c, "failed to list posts")
		}
		return
	}

	response.Success(c, gin.H{"posts": posts})
}

// pagination reads limit/offset query parameters; bad values fall back to defaults.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
