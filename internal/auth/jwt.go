package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Type     string `json:"type"` // "access" or "refresh"
}

// Manager handles JWT operations.
type Manager struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string

	// In-memory revocation store, keyed by user ID. Tokens issued before the
	// stored instant are rejected; tokens issued after (a later login) pass.
	revokedAt map[string]time.Time
	mu        sync.RWMutex
}

// NewManager creates a new JWT manager with a freshly generated RSA key pair.
func NewManager(accessDuration, refreshDuration time.Duration, issuer string) (*Manager, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	return &Manager{
		privateKey:      privateKey,
		publicKey:       &privateKey.PublicKey,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		issuer:          issuer,
		revokedAt:       make(map[string]time.Time),
	}, nil
}

// GenerateTokenPair creates access and refresh tokens.
func (m *Manager) GenerateTokenPair(userID, email, username string) (accessToken, refreshToken string, accessExp, refreshExp int64, err error) {
	now := time.Now()

	// Access token
	accessExp = now.Add(m.accessDuration).Unix()
	accessClaims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
		},
		UserID:   userID,
		Email:    email,
		Username: username,
		Type:     "access",
	}

	accessToken, err = m.signToken(accessClaims)
	if err != nil {
		return "", "", 0, 0, err
	}

	// Refresh token
	refreshExp = now.Add(m.refreshDuration).Unix()
	refreshClaims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshDuration)),
		},
		UserID: userID,
		Type:   "refresh",
	}

	refreshToken, err = m.signToken(refreshClaims)
	if err != nil {
		return "", "", 0, 0, err
	}

	return accessToken, refreshToken, accessExp, refreshExp, nil
}

// ValidateToken validates a token and returns claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return m.publicKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// Check if token was issued before the user's last revocation
	m.mu.RLock()
	revokedAt, revoked := m.revokedAt[claims.UserID]
	m.mu.RUnlock()
	if revoked && claims.IssuedAt != nil && !claims.IssuedAt.Time.After(revokedAt) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// RefreshTokens creates new token pair from a valid refresh token.
func (m *Manager) RefreshTokens(refreshTokenString string) (accessToken, refreshToken string, accessExp, refreshExp int64, err error) {
	claims, err := m.ValidateToken(refreshTokenString)
	if err != nil {
		return "", "", 0, 0, err
	}

	if claims.Type != "refresh" {
		return "", "", 0, 0, ErrInvalidToken
	}

	return m.GenerateTokenPair(claims.UserID, claims.Email, claims.Username)
}

// RevokeUserTokens revokes all tokens issued to a user up to now.
func (m *Manager) RevokeUserTokens(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedAt[userID] = time.Now()
}

// CleanupExpiredRevocations removes revocation entries older than the refresh
// token lifetime. Any token they could still reject has already expired.
func (m *Manager) CleanupExpiredRevocations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-m.refreshDuration)
	for userID, revokedAt := range m.revokedAt {
		if revokedAt.Before(cutoff) {
			delete(m.revokedAt, userID)
		}
	}
}

func (m *Manager) signToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(m.privateKey)
}
