package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidToken is returned for malformed or unknown credentials
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for tokens past their expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for revoked tokens
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenNotFound is returned when revoking a token the user does not own
	ErrTokenNotFound = errors.New("token not found")
	// ErrUserNotFound is returned when no user matches
	ErrUserNotFound = errors.New("user not found")
)

// User is an account that owns subscriptions and pages
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	OIDCSubject string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// APIToken is the stored form of an API token. The raw token is shown
// once at creation and only its SHA-256 hash is kept.
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// UserEmail is filled on lookup by hash
	UserEmail string `json:"-"`
}

// Method names how a principal authenticated
type Method string

const (
	MethodToken Method = "token"
	MethodOIDC  Method = "oidc"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Method  Method `json:"method"`
	TokenID int64  `json:"token_id,omitempty"`
}
