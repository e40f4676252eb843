package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenPrefix identifies laman API tokens
	TokenPrefix = "laman_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token
// Format: laman_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	return fullToken, tg.HashToken(fullToken), tg.ExtractPrefix(fullToken), nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// ExtractPrefix returns the prefix plus the first 8 characters, safe to display
func (tg *TokenGenerator) ExtractPrefix(token string) string {
	if !strings.HasPrefix(token, TokenPrefix) {
		return ""
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) >= 8 {
		return TokenPrefix + encodedPart[:8]
	}

	return token
}

// TokenStore persists API tokens
type TokenStore interface {
	Create(ctx context.Context, token *APIToken) error
	GetByHash(ctx context.Context, hash string) (*APIToken, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	Revoke(ctx context.Context, userID, id int64, at time.Time) error
	ListByUser(ctx context.Context, userID int64) ([]*APIToken, error)
}

// TokenManager manages API token lifecycle
type TokenManager struct {
	generator *TokenGenerator
	store     TokenStore

	// Now is the clock for expiry checks
	Now func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(store TokenStore) *TokenManager {
	return &TokenManager{
		generator: NewTokenGenerator(),
		store:     store,
		Now:       time.Now,
	}
}

// CreateToken issues a token for userID. The raw token is returned once
// and cannot be recovered later.
func (tm *TokenManager) CreateToken(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*APIToken, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", fmt.Errorf("token name is required")
	}

	token, tokenHash, tokenPrefix, err := tm.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	apiToken := &APIToken{
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		ExpiresAt:   expiresAt,
		CreatedAt:   tm.Now().UTC(),
	}
	if err := tm.store.Create(ctx, apiToken); err != nil {
		return nil, "", err
	}

	return apiToken, token, nil
}

// ValidateToken resolves a raw bearer token to its principal
func (tm *TokenManager) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	if err := tm.generator.ValidateTokenFormat(token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	apiToken, err := tm.store.GetByHash(ctx, tm.generator.HashToken(token))
	if errors.Is(err, ErrTokenNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	now := tm.Now().UTC()
	if apiToken.RevokedAt != nil {
		return nil, ErrTokenRevoked
	}
	if apiToken.ExpiresAt != nil && !now.Before(*apiToken.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	// last_used_at is informational; a failed update does not reject the request
	_ = tm.store.Touch(ctx, apiToken.ID, now)

	return &Principal{
		UserID:  apiToken.UserID,
		Email:   apiToken.UserEmail,
		Method:  MethodToken,
		TokenID: apiToken.ID,
	}, nil
}

// RevokeToken revokes one of the user's tokens
func (tm *TokenManager) RevokeToken(ctx context.Context, userID, tokenID int64) error {
	return tm.store.Revoke(ctx, userID, tokenID, tm.Now().UTC())
}

// ListUserTokens lists all tokens for a user, newest first
func (tm *TokenManager) ListUserTokens(ctx context.Context, userID int64) ([]*APIToken, error) {
	return tm.store.ListByUser(ctx, userID)
}
