package domain

import "time"

// Post is the domain representation of a microblog post.
// AuthorUsername is populated by queries that join the users table.
type Post struct {
	ID             uint      `json:"id"`
	Body           string    `json:"body"`
	Timestamp      time.Time `json:"timestamp"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
}

// CreatePostRequest represents a post creation request.
type CreatePostRequest struct {
	Body string `json:"body" binding:"required,max=140"`
}

// FollowCounts holds follower/followed totals for a user.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Followed  int64 `json:"followed"`
}
