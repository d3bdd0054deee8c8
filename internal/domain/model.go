package domain

import "time"

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	AboutMe      string    `gorm:"column:about_me;type:varchar(140)"`
	LastSeen     time.Time `gorm:"column:last_seen"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		AboutMe:      m.AboutMe,
		LastSeen:     m.LastSeen,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		AboutMe:      u.AboutMe,
		LastSeen:     u.LastSeen,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// PostModel is the GORM model for the posts table.
// Timestamp is set once at creation and never mutated.
type PostModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Body      string    `gorm:"type:varchar(140);not null"`
	Timestamp time.Time `gorm:"index;autoCreateTime"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;index"`
}

// TableName specifies the table name for PostModel.
func (PostModel) TableName() string {
	return "posts"
}

// ToDomain converts PostModel to domain Post.
func (m *PostModel) ToDomain() *Post {
	return &Post{
		ID:        m.ID,
		Body:      m.Body,
		Timestamp: m.Timestamp,
		AuthorID:  m.UserID,
	}
}

// PostToModel converts domain Post to PostModel.
func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:        p.ID,
		Body:      p.Body,
		Timestamp: p.Timestamp,
		UserID:    p.AuthorID,
	}
}

// FollowModel is the GORM model for the followers table.
// The composite unique index guards against duplicate edges, including
// concurrent inserts of the same (follower, followed) pair.
type FollowModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	FollowerID string    `gorm:"column:follower_id;type:varchar(36);not null;uniqueIndex:idx_follower_followed"`
	FollowedID string    `gorm:"column:followed_id;type:varchar(36);not null;uniqueIndex:idx_follower_followed"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for FollowModel.
func (FollowModel) TableName() string {
	return "followers"
}
