package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://id.example.com"
	testClientID = "laman"
)

type stubUsers struct {
	resolved []string
	emails   []string
}

func (s *stubUsers) Create(ctx context.Context, email, name string) (*User, error) {
	return &User{ID: 1, Email: email, Name: name}, nil
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	return nil, ErrUserNotFound
}

func (s *stubUsers) ResolveSubject(ctx context.Context, subject, email, name string) (*User, error) {
	s.resolved = append(s.resolved, subject)
	s.emails = append(s.emails, email)
	return &User{ID: 42, Email: "resolved@example.com", OIDCSubject: subject}, nil
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	jws, err := signer.Sign(payload)
	require.NoError(t, err)

	raw, err := jws.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func setupOIDC(t *testing.T) (*OIDCAuthenticator, *rsa.PrivateKey, *stubUsers) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})

	users := &stubUsers{}
	return NewOIDCAuthenticatorWithVerifier(verifier, users), key, users
}

func baseClaims() map[string]any {
	now := time.Now()
	return map[string]any{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "user-123",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "person@example.com",
		"name":  "Person",
	}
}

func TestOIDCAuthenticator_Authenticate(t *testing.T) {
	authenticator, key, users := setupOIDC(t)

	raw := signIDToken(t, key, baseClaims())
	assert.True(t, LooksLikeIDToken(raw))

	principal, err := authenticator.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, MethodOIDC, principal.Method)
	assert.Equal(t, []string{"user-123"}, users.resolved)
	assert.Equal(t, []string{"person@example.com"}, users.emails)
}

func TestOIDCAuthenticator_UnverifiedEmailNotUsed(t *testing.T) {
	authenticator, key, users := setupOIDC(t)

	claims := baseClaims()
	claims["email_verified"] = false
	_, err := authenticator.Authenticate(context.Background(), signIDToken(t, key, claims))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, users.emails)
}

func TestOIDCAuthenticator_Rejections(t *testing.T) {
	authenticator, key, _ := setupOIDC(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongAudience := baseClaims()
	wrongAudience["aud"] = "someone-else"

	tests := map[string]string{
		"expired":        signIDToken(t, key, expired),
		"wrong audience": signIDToken(t, key, wrongAudience),
		"wrong key":      signIDToken(t, otherKey, baseClaims()),
		"garbage":        "a.b.c",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := authenticator.Authenticate(context.Background(), raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
