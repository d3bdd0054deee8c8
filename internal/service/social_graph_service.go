package service

import (
	"context"
	"errors"

	"github.com/openblog/microblog/internal/audit"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/store"
	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/pubsub"
)

// socialGraphService implements SocialGraphService.
type socialGraphService struct {
	follows   repository.FollowRepository
	users     repository.UserRepository
	store     store.CountStore
	publisher pubsub.Publisher
}

// NewSocialGraphService creates a new SocialGraphService instance.
// store and publisher may be nil (cache and event bus disabled).
func NewSocialGraphService(follows repository.FollowRepository, users repository.UserRepository, counts store.CountStore, publisher pubsub.Publisher) SocialGraphService {
	return &socialGraphService{
		follows:   follows,
		users:     users,
		store:     counts,
		publisher: publisher,
	}
}

// Follow creates a follow edge from followerID to the user named targetUsername.
// Following an already-followed user is a no-op; self-follow is rejected.
func (s *socialGraphService) Follow(ctx context.Context, followerID, targetUsername string) error {
	l := log.Ctx(ctx)

	target, err := s.resolve(ctx, targetUsername)
	if err != nil {
		return err
	}

	if followerID == target.ID {
		return ErrSelfFollow
	}

	if err := s.follows.Follow(ctx, followerID, target.ID); err != nil {
		if errors.Is(err, repository.ErrAlreadyFollowing) {
			// Idempotent: the edge already exists, including when a concurrent
			// insert won the race.
			return nil
		}
		l.Error().Err(err).
			Str(log.FieldFollowerID, followerID).
			Str(log.FieldFollowedID, target.ID).
			Msg("failed to follow user")
		return err
	}

	s.adjustCounts(ctx, followerID, target.ID, true)

	audit.LogWithTarget(ctx, audit.ActionFollow, followerID, target.ID, "user followed")
	publish(ctx, s.publisher, pubsub.ChannelFollowCreated(target.ID), pubsub.EventFollowCreated, target.ID,
		map[string]string{"follower_id": followerID})

	return nil
}

// Unfollow removes the follow edge from followerID to the user named
// targetUsername. Unfollowing a non-followed user is a no-op.
func (s *socialGraphService) Unfollow(ctx context.Context, followerID, targetUsername string) error {
	l := log.Ctx(ctx)

	target, err := s.resolve(ctx, targetUsername)
	if err != nil {
		return err
	}

	if err := s.follows.Unfollow(ctx, followerID, target.ID); err != nil {
		if errors.Is(err, repository.ErrNotFollowing) {
			return nil
		}
		l.Error().Err(err).
			Str(log.FieldFollowerID, followerID).
			Str(log.FieldFollowedID, target.ID).
			Msg("failed to unfollow user")
		return err
	}

	s.adjustCounts(ctx, followerID, target.ID, false)

	audit.LogWithTarget(ctx, audit.ActionUnfollow, followerID, target.ID, "user unfollowed")
	publish(ctx, s.publisher, pubsub.ChannelFollowRemoved(target.ID), pubsub.EventFollowRemoved, target.ID,
		map[string]string{"follower_id": followerID})

	return nil
}

// IsFollowing checks if followerID follows followedID.
func (s *socialGraphService) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	return s.follows.IsFollowing(ctx, followerID, followedID)
}

// Followers returns the users following the named user.
func (s *socialGraphService) Followers(ctx context.Context, username string, limit, offset int) ([]domain.UserResponse, error) {
	user, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	limit, offset = normalizePage(limit, offset)
	users, err := s.follows.Followers(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return toResponses(users), nil
}

// Followed returns the users the named user follows.
func (s *socialGraphService) Followed(ctx context.Context, username string, limit, offset int) ([]domain.UserResponse, error) {
	user, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	limit, offset = normalizePage(limit, offset)
	users, err := s.follows.Followed(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return toResponses(users), nil
}

// Counts returns follower/followed totals for userID.
// It checks Redis first; on miss it queries the DB and populates Redis.
func (s *socialGraphService) Counts(ctx context.Context, userID string) (*domain.FollowCounts, error) {
	followers, err := s.count(ctx, store.FollowersCountKey(userID), func() (int64, error) {
		return s.follows.CountFollowers(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	followed, err := s.count(ctx, store.FollowedCountKey(userID), func() (int64, error) {
		return s.follows.CountFollowed(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.FollowCounts{Followers: followers, Followed: followed}, nil
}

func (s *socialGraphService) count(ctx context.Context, key string, fromDB func() (int64, error)) (int64, error) {
	l := log.Ctx(ctx)

	if s.store != nil {
		count, found, err := s.store.GetCount(ctx, key)
		if err != nil {
			l.Warn().Err(err).Str("key", key).Msg("redis get count failed, falling back to db")
		}
		if found {
			return count, nil
		}
	}

	count, err := fromDB()
	if err != nil {
		l.Error().Err(err).Str("key", key).Msg("failed to get count from db")
		return 0, err
	}

	if s.store != nil {
		if err := s.store.SetCount(ctx, key, count); err != nil {
			l.Warn().Err(err).Str("key", key).Msg("failed to set count in redis")
		}
	}

	return count, nil
}

// adjustCounts nudges cached totals after a successful edge mutation.
// Only keys already warm in the cache are touched.
func (s *socialGraphService) adjustCounts(ctx context.Context, followerID, followedID string, incr bool) {
	if s.store == nil {
		return
	}
	l := log.Ctx(ctx)

	op := s.store.CondIncr
	if !incr {
		op = s.store.CondDecr
	}

	if err := op(ctx, store.FollowersCountKey(followedID)); err != nil {
		l.Warn().Err(err).Str(log.FieldFollowedID, followedID).Msg("failed to adjust cached followers count")
	}
	if err := op(ctx, store.FollowedCountKey(followerID)); err != nil {
		l.Warn().Err(err).Str(log.FieldFollowerID, followerID).Msg("failed to adjust cached followed count")
	}
}

func (s *socialGraphService) resolve(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func toResponses(users []domain.User) []domain.UserResponse {
	out := make([]domain.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out
}

// Ensure interface is satisfied at compile time.
var _ SocialGraphService = (*socialGraphService)(nil)
