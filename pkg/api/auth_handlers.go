package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/httputil"
	"github.com/platinummonkey/laman/pkg/middleware"
)

// me handles GET /me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, principal)
}

// listTokens handles GET /tokens
func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tokens, err := s.tokens.ListUserTokens(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tokens == nil {
		tokens = []*auth.APIToken{}
	}
	httputil.WriteSuccess(w, tokens)
}

// createToken handles POST /tokens
func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteUnprocessableEntity(w, "The name field is required.", map[string]string{"name": "The name field is required."})
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.Now()) {
		httputil.WriteUnprocessableEntity(w, "The expiry must be in the future.", map[string]string{"expires_at": "The expiry must be in the future."})
		return
	}

	apiToken, raw, err := s.tokens.CreateToken(r.Context(), userID, req.Name, req.ExpiresAt)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.audit.LogFromRequest(r, auth.ActionTokenCreate, fmt.Sprintf("token:%d", apiToken.ID), auth.StatusSuccess, nil)

	httputil.WriteCreated(w, CreateTokenResponse{Token: raw, APIToken: apiToken})
}

// revokeToken handles DELETE /tokens/{id}
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	resource := fmt.Sprintf("token:%d", id)
	if err := s.tokens.RevokeToken(r.Context(), userID, id); err != nil {
		s.audit.LogFromRequest(r, auth.ActionTokenRevoke, resource, auth.StatusFailure, err)
		s.writeServiceError(w, r, err)
		return
	}
	s.audit.LogFromRequest(r, auth.ActionTokenRevoke, resource, auth.StatusSuccess, nil)

	httputil.WriteNoContent(w)
}
