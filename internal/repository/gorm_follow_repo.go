package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/openblog/microblog/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || // PostgreSQL
		strings.Contains(errStr, "Duplicate entry") || // MySQL
		strings.Contains(errStr, "UNIQUE constraint") // SQLite
}

// isForeignKeyViolation reports whether err is a referential-integrity failure.
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "foreign key") ||
		strings.Contains(errStr, "FOREIGN KEY constraint")
}

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Follow inserts the (follower, followed) edge. The composite unique index
// makes a concurrent duplicate insert fail with a conflict, which is reported
// as ErrAlreadyFollowing rather than a generic failure.
func (r *GormFollowRepository) Follow(ctx context.Context, followerID, followedID string) error {
	model := domain.FollowModel{
		FollowerID: followerID,
		FollowedID: followedID,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyFollowing
		}
		return err
	}
	return nil
}

// Unfollow removes the (follower, followed) edge.
func (r *GormFollowRepository) Unfollow(ctx context.Context, followerID, followedID string) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&domain.FollowModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFollowing
	}
	return nil
}

// IsFollowing checks if followerID follows followedID.
func (r *GormFollowRepository) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Followers returns the users following userID, ordered by username.
func (r *GormFollowRepository) Followers(ctx context.Context, userID string, limit, offset int) ([]domain.User, error) {
	return r.listUsers(ctx,
		"JOIN followers ON followers.follower_id = users.id",
		"followers.followed_id = ?", userID, limit, offset)
}

// Followed returns the users that userID follows, ordered by username.
func (r *GormFollowRepository) Followed(ctx context.Context, userID string, limit, offset int) ([]domain.User, error) {
	return r.listUsers(ctx,
		"JOIN followers ON followers.followed_id = users.id",
		"followers.follower_id = ?", userID, limit, offset)
}

func (r *GormFollowRepository) listUsers(ctx context.Context, join, where, userID string, limit, offset int) ([]domain.User, error) {
	var models []domain.UserModel
	err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Joins(join).
		Where(where, userID).
		Order("users.username ASC").
		Limit(limit).Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].ToDomain())
	}
	return users, nil
}

// CountFollowers returns the total number of followers for a given user.
func (r *GormFollowRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return r.countEdges(ctx, "followed_id = ?", userID)
}

// CountFollowed returns how many users a given user follows.
func (r *GormFollowRepository) CountFollowed(ctx context.Context, userID string) (int64, error) {
	return r.countEdges(ctx, "follower_id = ?", userID)
}

func (r *GormFollowRepository) countEdges(ctx context.Context, where, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where(where, userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure interface is satisfied at compile time.
var _ FollowRepository = (*GormFollowRepository)(nil)
