package domain

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// User represents a user entity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AboutMe      string    `json:"about_me,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AvatarURL returns the Gravatar URL for the user's email at the given pixel size.
func (u *User) AvatarURL(size int) string {
	digest := md5.Sum([]byte(strings.ToLower(u.Email)))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=%d", digest, size)
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=120"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents a refresh token request.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents a profile edit request.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=64"`
	AboutMe  *string `json:"about_me" binding:"omitempty,max=140"`
}

// AuthResponse represents authentication response with tokens.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    int64        `json:"expires_at"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AboutMe   string    `json:"about_me,omitempty"`
	AvatarURL string    `json:"avatar_url"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileResponse is a user profile with aggregate counts.
type ProfileResponse struct {
	UserResponse
	PostCount     int64 `json:"post_count"`
	FollowerCount int64 `json:"follower_count"`
	FollowedCount int64 `json:"followed_count"`
}

// ToResponse converts User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AboutMe:   u.AboutMe,
		AvatarURL: u.AvatarURL(128),
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}
