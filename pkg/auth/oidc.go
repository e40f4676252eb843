package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticator accepts ID tokens from one OpenID Connect issuer as
// bearer credentials and maps their subject to a local user.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
	users    UserStore
}

// NewOIDCAuthenticator discovers the issuer's keys and returns an authenticator
// that accepts ID tokens issued to clientID.
func NewOIDCAuthenticator(ctx context.Context, issuer, clientID string, users UserStore) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return NewOIDCAuthenticatorWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID}), users), nil
}

// NewOIDCAuthenticatorWithVerifier uses a preconfigured verifier
func NewOIDCAuthenticatorWithVerifier(verifier *oidc.IDTokenVerifier, users UserStore) *OIDCAuthenticator {
	return &OIDCAuthenticator{verifier: verifier, users: users}
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// LooksLikeIDToken reports whether raw has the three-part JWT shape
func LooksLikeIDToken(raw string) bool {
	return strings.Count(raw, ".") == 2
}

// Authenticate verifies rawIDToken and resolves its principal
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, rawIDToken string) (*Principal, error) {
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	// an unverified email must not be used to link an existing account
	email := claims.Email
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		email = ""
	}

	user, err := a.users.ResolveSubject(ctx, idToken.Subject, email, claims.Name)
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID: user.ID,
		Email:  user.Email,
		Method: MethodOIDC,
	}, nil
}
