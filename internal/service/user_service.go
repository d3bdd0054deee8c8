package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/openblog/microblog/internal/audit"
	"github.com/openblog/microblog/internal/auth"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/pubsub"
)

// userServiceImpl implements UserService.
type userServiceImpl struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	graph     SocialGraphService
	tokens    *auth.Manager
	publisher pubsub.Publisher
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, posts repository.PostRepository, graph SocialGraphService, tokens *auth.Manager, publisher pubsub.Publisher) UserService {
	return &userServiceImpl{
		users:     users,
		posts:     posts,
		graph:     graph,
		tokens:    tokens,
		publisher: publisher,
	}
}

// Register registers a new user and logs them in.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	// The plaintext password is hashed immediately and never stored or logged.
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicateKey) {
			l.Error().Err(err).Msg("failed to create user")
		}
		return nil, err
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	publish(ctx, s.publisher, pubsub.ChannelUserRegistered(user.ID), pubsub.EventUserRegistered, user.ID,
		map[string]string{"username": user.Username})

	return resp, nil
}

// Login authenticates a user by username and password.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Username, "login failed: user not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by username")
		return nil, err
	}

	// bcrypt's comparison is constant-time over the hash.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, req.Username, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return resp, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *userServiceImpl) Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	accessToken, refreshToken, accessExp, _, err := s.tokens.RefreshTokens(req.RefreshToken)
	if err != nil {
		l.Warn().Err(err).Msg("failed to refresh token")
		return nil, ErrInvalidCredentials
	}

	claims, err := s.tokens.ValidateToken(accessToken)
	if err != nil {
		l.Warn().Err(err).Msg("refreshed token validation failed")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Str(log.FieldUserID, claims.UserID).Msg("failed to get user after token refresh")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRefreshToken, user.ID, "token refreshed")

	return &domain.AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
	}, nil
}

// Logout revokes all of a user's tokens.
func (s *userServiceImpl) Logout(ctx context.Context, userID string) error {
	s.tokens.RevokeUserTokens(userID)
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
	return nil
}

// GetProfile returns a user's profile with post and follow counts.
func (s *userServiceImpl) GetProfile(ctx context.Context, username string) (*domain.ProfileResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUsername, username).Msg("failed to get user")
		return nil, err
	}

	postCount, err := s.posts.CountByAuthor(ctx, user.ID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to count posts")
		return nil, err
	}

	counts, err := s.graph.Counts(ctx, user.ID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to get follow counts")
		return nil, err
	}

	return &domain.ProfileResponse{
		UserResponse:  user.ToResponse(),
		PostCount:     postCount,
		FollowerCount: counts.Followers,
		FollowedCount: counts.Followed,
	}, nil
}

// UpdateProfile updates username and/or bio. A username collision with a
// different existing user surfaces as a duplicate-key error.
func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get user for update")
		return nil, err
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.AboutMe != nil {
		user.AboutMe = *req.AboutMe
	}

	if err := s.users.Update(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicateKey) {
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to update user")
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")

	resp := user.ToResponse()
	return &resp, nil
}

// TouchLastSeen records activity for the user. Best-effort: a failed write
// must not fail the surrounding request.
func (s *userServiceImpl) TouchLastSeen(ctx context.Context, userID string) {
	if err := s.users.TouchLastSeen(ctx, userID, time.Now().UTC()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to update last seen")
	}
}

func (s *userServiceImpl) issueTokens(ctx context.Context, user *domain.User) (*domain.AuthResponse, error) {
	accessToken, refreshToken, accessExp, _, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Username)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens")
		return nil, err
	}

	return &domain.AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
	}, nil
}

// Ensure interface is satisfied at compile time.
var _ UserService = (*userServiceImpl)(nil)
