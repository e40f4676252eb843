package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/httputil"
)

// TokenValidator resolves laman API tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Principal, error)
}

// IDTokenAuthenticator resolves OpenID Connect ID tokens
type IDTokenAuthenticator interface {
	Authenticate(ctx context.Context, rawIDToken string) (*auth.Principal, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens   TokenValidator
	idTokens IDTokenAuthenticator
	audit    *auth.AuditLogger
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens TokenValidator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		optional: optional,
	}
}

// WithOIDC also accepts ID tokens verified by authenticator
func (m *AuthMiddleware) WithOIDC(authenticator IDTokenAuthenticator) *AuthMiddleware {
	m.idTokens = authenticator
	return m
}

// WithAudit records failed authentications
func (m *AuthMiddleware) WithAudit(audit *auth.AuditLogger) *AuthMiddleware {
	m.audit = audit
	return m
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		principal, err := m.authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if m.audit != nil {
				m.audit.LogFromRequest(r, auth.ActionAuthFailure, "bearer", auth.StatusFailure, err)
			}
			httputil.WriteUnauthorized(w, unauthorizedMessage(err))
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	if m.idTokens != nil && !strings.HasPrefix(token, auth.TokenPrefix) && auth.LooksLikeIDToken(token) {
		return m.idTokens.Authenticate(ctx, token)
	}
	return m.tokens.ValidateToken(ctx, token)
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "token revoked"
	default:
		return "invalid or expired token"
	}
}

// RequireAuth rejects requests that reached it without a principal. It is
// used behind an optional AuthMiddleware.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r) == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrincipal extracts the authenticated principal from request
func GetPrincipal(r *http.Request) *auth.Principal {
	return auth.PrincipalFromContext(r.Context())
}
