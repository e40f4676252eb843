// Package auth authenticates API callers.
//
// Two bearer credentials are accepted. API tokens have the form
// laman_<base64url(32 random bytes)>; only their SHA-256 hash is stored,
// and TokenManager.ValidateToken resolves them through a TokenStore.
// When an OIDC issuer is configured, OIDCAuthenticator also accepts ID
// tokens from it and maps their subject to a local user, linking by
// verified email or provisioning a new user on first sight.
//
// Both paths produce a Principal that middleware stores in the request
// context:
//
//	principal := auth.PrincipalFromContext(r.Context())
//	if principal == nil {
//		httputil.WriteUnauthorized(w, "authentication required")
//		return
//	}
//
// AuditLogger records security events such as authentication failures and
// subscription changes as structured log entries.
package auth
