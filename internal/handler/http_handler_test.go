package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openblog/microblog/internal/auth"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/handler"
	"github.com/openblog/microblog/internal/middleware"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.UserModel{}, &domain.PostModel{}, &domain.FollowModel{}))

	tokens, err := auth.NewManager(15*time.Minute, time.Hour, "microblog-test")
	require.NoError(t, err)

	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	graph := service.NewSocialGraphService(followRepo, userRepo, nil, nil)
	users := service.NewUserService(userRepo, postRepo, graph, tokens, nil)
	timeline := service.NewTimelineService(postRepo, userRepo, nil)

	h := handler.NewHandler(users, graph, timeline, middleware.NewAuthMiddleware(tokens, users))

	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func registerUser(t *testing.T, r *gin.Engine, username string) (token string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	token, _ = data["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginFlow(t *testing.T) {
	r := newTestRouter(t)

	registerUser(t, r, "alice")

	// Duplicate username is a conflict.
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"email":    "second@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Short password fails validation.
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostsRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", "", gin.H{"body": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFollowAndFeedFlow(t *testing.T) {
	r := newTestRouter(t)

	aliceToken := registerUser(t, r, "alice")
	bobToken := registerUser(t, r, "bob")

	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", bobToken, gin.H{"body": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/posts", aliceToken, gin.H{"body": "hi"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	posts, _ := decodeData(t, w)["posts"].([]interface{})
	require.Len(t, posts, 2)
	first, _ := posts[0].(map[string]interface{})
	second, _ := posts[1].(map[string]interface{})
	assert.Equal(t, "hi", first["body"])
	assert.Equal(t, "hello", second["body"])

	// Unfollow empties bob out of alice's feed.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts, _ = decodeData(t, w)["posts"].([]interface{})
	require.Len(t, posts, 1)
}

func TestFollowEdgeCases(t *testing.T) {
	r := newTestRouter(t)

	aliceToken := registerUser(t, r, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/users/alice/follow", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/users/nobody/follow", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Unfollowing someone never followed still succeeds.
	registerUser(t, r, "bob")
	w = doJSON(t, r, http.MethodDelete, "/api/v1/users/bob/follow", aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestProfileEndpoints(t *testing.T) {
	r := newTestRouter(t)

	aliceToken := registerUser(t, r, "alice")

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/alice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "alice", data["username"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	about := "hello there"
	w = doJSON(t, r, http.MethodPut, "/api/v1/users/me", aliceToken, gin.H{"about_me": about})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, about, decodeData(t, w)["about_me"])

	// Body over 140 characters fails validation.
	long := make([]byte, 141)
	for i := range long {
		long[i] = 'x'
	}
	w = doJSON(t, r, http.MethodPut, "/api/v1/users/me", aliceToken, gin.H{"about_me": string(long)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExploreIsPublic(t *testing.T) {
	r := newTestRouter(t)

	aliceToken := registerUser(t, r, "alice")
	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", aliceToken, gin.H{"body": "hi"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/explore", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts, _ := decodeData(t, w)["posts"].([]interface{})
	assert.Len(t, posts, 1)
}
