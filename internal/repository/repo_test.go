package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/repository"
)

// newTestDB opens an in-memory SQLite database with the schema migrated.
// A single connection keeps the in-memory database alive and shared.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.UserModel{}, &domain.PostModel{}, &domain.FollowModel{}))
	return db
}

func createUser(t *testing.T, users *repository.GormUserRepository, username, email string) *domain.User {
	t.Helper()

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "irrelevant-hash",
	}
	require.NoError(t, users.Create(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}
