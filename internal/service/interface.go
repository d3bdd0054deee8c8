package service

import (
	"context"
	"errors"

	"github.com/openblog/microblog/internal/domain"
)

var (
	// ErrInvalidCredentials covers both unknown username and wrong password,
	// so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfFollow         = errors.New("cannot follow yourself")
)

// UserService defines the business logic for identity and profiles.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, username string) (*domain.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.UserResponse, error)
	// TouchLastSeen records activity for an authenticated request.
	// Best-effort: failures are logged, never surfaced.
	TouchLastSeen(ctx context.Context, userID string)
}

// SocialGraphService defines the business logic for the follow graph.
type SocialGraphService interface {
	// Follow makes followerID follow the user named targetUsername.
	// Following an already-followed user is a no-op. Self-follow is rejected.
	Follow(ctx context.Context, followerID, targetUsername string) error
	// Unfollow removes the edge; unfollowing a non-followed user is a no-op.
	Unfollow(ctx context.Context, followerID, targetUsername string) error
	IsFollowing(ctx context.Context, followerID, followedID string) (bool, error)
	Followers(ctx context.Context, username string, limit, offset int) ([]domain.UserResponse, error)
	Followed(ctx context.Context, username string, limit, offset int) ([]domain.UserResponse, error)
	// Counts returns follower/followed totals, cached when a store is configured.
	Counts(ctx context.Context, userID string) (*domain.FollowCounts, error)
}

// TimelineService defines the business logic for posts and feeds.
type TimelineService interface {
	CreatePost(ctx context.Context, authorID string, req *domain.CreatePostRequest) (*domain.Post, error)
	// Feed returns the reverse-chronological union of the user's own posts
	// and the posts of everyone they follow.
	Feed(ctx context.Context, userID string, limit, offset int) ([]domain.Post, error)
	Explore(ctx context.Context, limit, offset int) ([]domain.Post, error)
	UserPosts(ctx context.Context, username string, limit, offset int) ([]domain.Post, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage clamps pagination parameters to sane, deterministic bounds.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
