package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openblog/microblog/internal/domain"
)

// Error kinds. Specific errors wrap one of these so callers can match the
// kind with errors.Is without caring which column collided.
var (
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrUsernameExists   = fmt.Errorf("username already exists: %w", ErrDuplicateKey)
	ErrEmailExists      = fmt.Errorf("email already exists: %w", ErrDuplicateKey)
	ErrAlreadyFollowing = fmt.Errorf("already following: %w", ErrDuplicateKey)
	ErrNotFollowing     = fmt.Errorf("follow relationship %w", ErrNotFound)
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// TouchLastSeen updates only the last_seen column.
	TouchLastSeen(ctx context.Context, id string, t time.Time) error
}

// PostRepository defines the interface for post persistence and feed queries.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]domain.Post, error)
	ListAll(ctx context.Context, limit, offset int) ([]domain.Post, error)
	CountByAuthor(ctx context.Context, authorID string) (int64, error)
	// ListFeed returns posts authored by userID or by anyone userID follows,
	// ordered by (timestamp desc, id desc).
	ListFeed(ctx context.Context, userID string, limit, offset int) ([]domain.Post, error)
}

// FollowRepository defines persistence operations for follow edges.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followedID string) error
	Unfollow(ctx context.Context, followerID, followedID string) error
	IsFollowing(ctx context.Context, followerID, followedID string) (bool, error)
	Followers(ctx context.Context, userID string, limit, offset int) ([]domain.User, error)
	Followed(ctx context.Context, userID string, limit, offset int) ([]domain.User, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowed(ctx context.Context, userID string) (int64, error)
}
