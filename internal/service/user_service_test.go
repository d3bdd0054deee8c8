package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openblog/microblog/internal/auth"
	"github.com/openblog/microblog/internal/domain"
	"github.com/openblog/microblog/internal/repository"
	"github.com/openblog/microblog/internal/service"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg := e.register(t, "alice")
	assert.Equal(t, "alice", reg.User.Username)

	login, err := e.users.Login(ctx, &domain.LoginRequest{
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	claims, err := e.tokens.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e := newEnv(t)

	e.register(t, "alice")

	_, err := e.users.Register(context.Background(), &domain.RegisterRequest{
		Username: "alice",
		Email:    "second@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUsernameExists)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)

	e.register(t, "alice")

	_, err := e.users.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	e := newEnv(t)

	// Unknown username and wrong password produce the same error.
	_, err := e.users.Login(context.Background(), &domain.LoginRequest{
		Username: "nobody",
		Password: "password123",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg := e.register(t, "alice")

	refreshed, err := e.users.Refresh(ctx, &domain.RefreshTokenRequest{
		RefreshToken: reg.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, refreshed.User.ID)

	claims, err := e.tokens.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	e := newEnv(t)

	reg := e.register(t, "alice")

	_, err := e.users.Refresh(context.Background(), &domain.RefreshTokenRequest{
		RefreshToken: reg.AccessToken,
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogoutRevokesTokens(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg := e.register(t, "alice")
	require.NoError(t, e.users.Logout(ctx, reg.User.ID))

	_, err := e.tokens.ValidateToken(reg.AccessToken)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)
}

func TestGetProfileCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice")
	bob := e.register(t, "bob")

	_, err := e.timeline.CreatePost(ctx, alice.User.ID, &domain.CreatePostRequest{Body: "hi"})
	require.NoError(t, err)
	require.NoError(t, e.graph.Follow(ctx, bob.User.ID, "alice"))

	profile, err := e.users.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.PostCount)
	assert.Equal(t, int64(1), profile.FollowerCount)
	assert.Equal(t, int64(0), profile.FollowedCount)
	assert.Contains(t, profile.AvatarURL, "gravatar.com")
}

func TestGetProfileUnknownUser(t *testing.T) {
	e := newEnv(t)

	_, err := e.users.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice")

	about := "gardener and part time gopher"
	resp, err := e.users.UpdateProfile(ctx, alice.User.ID, &domain.UpdateProfileRequest{
		AboutMe: &about,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, about, resp.AboutMe)

	// Only the provided fields change.
	name := "alice2"
	resp, err = e.users.UpdateProfile(ctx, alice.User.ID, &domain.UpdateProfileRequest{
		Username: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", resp.Username)
	assert.Equal(t, about, resp.AboutMe)
}

func TestUpdateProfileUsernameTaken(t *testing.T) {
	e := newEnv(t)

	e.register(t, "alice")
	bob := e.register(t, "bob")

	name := "alice"
	_, err := e.users.UpdateProfile(context.Background(), bob.User.ID, &domain.UpdateProfileRequest{
		Username: &name,
	})
	assert.ErrorIs(t, err, repository.ErrUsernameExists)
}

func TestTouchLastSeen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice")
	e.users.TouchLastSeen(ctx, alice.User.ID)

	user, err := e.userRepo.GetByID(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.False(t, user.LastSeen.IsZero())

	// Unknown users are ignored, not surfaced.
	e.users.TouchLastSeen(ctx, "no-such-user")
}
