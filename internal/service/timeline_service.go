package service

import (
	"context"
	"errors"

	"github.com/openblog/microblog/internal/audit"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/pubsub"
)

// timelineService implements TimelineService.
type timelineService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	publisher pubsub.Publisher
}

// NewTimelineService creates a new TimelineService instance.
func NewTimelineService(posts repository.PostRepository, users repository.UserRepository, publisher pubsub.Publisher) TimelineService {
	return &timelineService{
		posts:     posts,
		users:     users,
		publisher: publisher,
	}
}

// CreatePost creates a post authored by authorID.
func (s *timelineService) CreatePost(ctx context.Context, authorID string, req *domain.CreatePostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, authorID).Msg("failed to get author")
		return nil, err
	}

	post := &domain.Post{
		Body:     req.Body,
		AuthorID: author.ID,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, authorID).Msg("failed to create post")
		return nil, err
	}
	post.AuthorUsername = author.Username

	audit.Log(ctx, audit.ActionCreatePost, authorID, "post created")
	publish(ctx, s.publisher, pubsub.ChannelPostCreated(authorID), pubsub.EventPostCreated, authorID,
		map[string]interface{}{"post_id": post.ID})

	return post, nil
}

// Feed returns the reverse-chronological union of userID's own posts and the
// posts of everyone userID follows. Computed fresh on every call; a follow or
// unfollow is visible on the next read.
func (s *timelineService) Feed(ctx context.Context, userID string, limit, offset int) ([]domain.Post, error) {
	limit, offset = normalizePage(limit, offset)
	return s.posts.ListFeed(ctx, userID, limit, offset)
}

// Explore returns all posts, newest first.
func (s *timelineService) Explore(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	limit, offset = normalizePage(limit, offset)
	return s.posts.ListAll(ctx, limit, offset)
}

// UserPosts returns the named user's posts, newest first.
func (s *timelineService) UserPosts(ctx context.Context, username string, limit, offset int) ([]domain.Post, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	limit, offset = normalizePage(limit, offset)
	return s.posts.ListByAuthor(ctx, user.ID, limit, offset)
}

// Ensure interface is satisfied at compile time.
var _ TimelineService = (*timelineService)(nil)
