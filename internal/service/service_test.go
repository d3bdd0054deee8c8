package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openblog/microblog/internal/auth"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/service"
)

// env bundles a full service stack over an in-memory database, with the
// count cache and event bus disabled.
type env struct {
	users    service.UserService
	graph    service.SocialGraphService
	timeline service.TimelineService
	tokens   *auth.Manager

	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()

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

	return &env{
		users:      users,
		graph:      graph,
		timeline:   timeline,
		tokens:     tokens,
		userRepo:   userRepo,
		followRepo: followRepo,
	}
}

func (e *env) register(t *testing.T, username string) *domain.AuthResponse {
	t.Helper()

	resp, err := e.users.Register(context.Background(), &domain.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.User.ID)
	require.NotEmpty(t, resp.AccessToken)
	return resp
}
