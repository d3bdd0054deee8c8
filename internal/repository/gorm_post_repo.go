package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/openblog/microblog/internal/domain"
)

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GORM-based post repository.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create inserts a new post. The timestamp is set by the database layer at
// creation unless already provided, and is never updated afterwards.
func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	model := domain.PostToModel(post)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		if isForeignKeyViolation(err) {
			return ErrConstraintViolation
		}
		return err
	}

	post.ID = model.ID
	post.Timestamp = model.Timestamp
	return nil
}

// ListByAuthor returns a user's posts in reverse chronological order.
func (r *GormPostRepository) ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]domain.Post, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("posts.user_id = ?", authorID), limit, offset)
}

// ListAll returns all posts in reverse chronological order (the explore view).
func (r *GormPostRepository) ListAll(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	return r.list(ctx, r.db.WithContext(ctx), limit, offset)
}

// ListFeed returns the feed for userID: posts authored by userID or by any
// user userID follows, ordered by (timestamp desc, id desc). The follow set
// is resolved inside the same query, so edge changes are visible immediately.
func (r *GormPostRepository) ListFeed(ctx context.Context, userID string, limit, offset int) ([]domain.Post, error) {
	followed := r.db.Model(&domain.FollowModel{}).
		Select("followed_id").
		Where("follower_id = ?", userID)

	tx := r.db.WithContext(ctx).
		Where("posts.user_id IN (?) OR posts.user_id = ?", followed, userID)

	return r.list(ctx, tx, limit, offset)
}

func (r *GormPostRepository) list(ctx context.Context, tx *gorm.DB, limit, offset int) ([]domain.Post, error) {
	var models []domain.PostModel
	err := tx.Model(&domain.PostModel{}).
		Order("posts.timestamp DESC").
		Order("posts.id DESC").
		Limit(limit).Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	if len(models) == 0 {
		return []domain.Post{}, nil
	}

	posts := make([]domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, *models[i].ToDomain())
	}

	if err := r.fillAuthors(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// fillAuthors resolves author usernames for a page of posts in one query.
func (r *GormPostRepository) fillAuthors(ctx context.Context, posts []domain.Post) error {
	ids := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for i := range posts {
		if _, ok := seen[posts[i].AuthorID]; !ok {
			seen[posts[i].AuthorID] = struct{}{}
			ids = append(ids, posts[i].AuthorID)
		}
	}

	var authors []domain.UserModel
	err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Select("id", "username").
		Where("id IN ?", ids).
		Find(&authors).Error
	if err != nil {
		return err
	}

	names := make(map[string]string, len(authors))
	for i := range authors {
		names[authors[i].ID] = authors[i].Username
	}
	for i := range posts {
		posts[i].AuthorUsername = names[posts[i].AuthorID]
	}
	return nil
}

// CountByAuthor returns the number of posts authored by a user.
func (r *GormPostRepository) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PostModel{}).
		Where("user_id = ?", authorID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure interface is satisfied at compile time.
var _ PostRepository = (*GormPostRepository)(nil)
