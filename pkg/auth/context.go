package auth

import (
	"context"

	"github.com/platinummonkey/laman/pkg/contextkeys"
)

// WithPrincipal stores principal in ctx along with its user id
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	ctx = contextkeys.WithPrincipal(ctx, principal)
	return contextkeys.WithUserID(ctx, principal.UserID)
}

// PrincipalFromContext returns the authenticated principal, or nil
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return principal
}
