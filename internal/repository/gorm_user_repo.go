package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openblog/microblog/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user. Username and email uniqueness is enforced by the
// database constraints, not by a check-then-insert.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.ID = uuid.New().String()
	if user.LastSeen.IsZero() {
		user.LastSeen = time.Now().UTC()
	}

	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return r.handleError(result.Error)
	}

	// Update the domain object with generated timestamps
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

// GetByEmail retrieves a user by email.
func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *GormUserRepository) getBy(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Update updates a user's mutable fields. A username collision with a
// different existing user surfaces as ErrUsernameExists.
func (r *GormUserRepository) Update(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":      model.Username,
			"about_me":      model.AboutMe,
			"password_hash": model.PasswordHash,
		})
	if result.Error != nil {
		return r.handleError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	// Get updated timestamp
	var updated domain.UserModel
	r.db.WithContext(ctx).First(&updated, "id = ?", user.ID)
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

// TouchLastSeen updates only the last_seen column, leaving updated_at alone.
func (r *GormUserRepository) TouchLastSeen(ctx context.Context, id string, t time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", id).
		UpdateColumn("last_seen", t).Error
}

// handleError converts database-specific errors to domain errors. The driver
// message names the conflicting column, which decides the duplicate variant.
func (r *GormUserRepository) handleError(err error) error {
	if isUniqueViolation(err) {
		errStr := err.Error()
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
		return ErrDuplicateKey
	}

	if isForeignKeyViolation(err) {
		return ErrConstraintViolation
	}

	return err
}

// Ensure interface is satisfied at compile time.
var _ UserRepository = (*GormUserRepository)(nil)
