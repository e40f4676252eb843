package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/httputil"
	"github.com/platinummonkey/laman/pkg/middleware"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/pages"
)

// healthCheck handles GET /health-check
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, HealthResponse{
		Status:    "ok",
		Timestamp: s.Now().UTC().Format(time.RFC3339),
	})
}

// currentUser returns the authenticated user's id, writing 401 when the
// request carries no principal
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return 0, false
	}
	return principal.UserID, true
}

// writeServiceError maps domain errors to HTTP responses
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *pages.ValidationError
		limit      *entitlements.LimitExceededError
	)

	switch {
	case errors.As(err, &validation):
		httputil.WriteUnprocessableEntity(w, validation.Message, map[string]string{validation.Field: validation.Message})
	case errors.As(err, &limit):
		s.audit.LogFromRequest(r, auth.ActionGenerationRejected, r.URL.Path, auth.StatusDenied, err)
		httputil.WriteJSON(w, http.StatusPaymentRequired, newLimitExceededResponse(limit))
	case errors.Is(err, entitlements.ErrPlanNotFound):
		httputil.WriteNotFoundError(w, "The selected plan does not exist.")
	case errors.Is(err, entitlements.ErrNoActiveSubscription):
		httputil.WriteConflict(w, "No active subscription found.")
	case errors.Is(err, pages.ErrUnauthorized):
		httputil.WriteForbidden(w, "Unauthorized")
	case errors.Is(err, pages.ErrPageNotFound):
		httputil.WriteNotFoundError(w, "page not found")
	case errors.Is(err, pages.ErrPageNotReady):
		httputil.WriteConflict(w, "page has no completed output")
	case errors.Is(err, pages.ErrExportDisabled):
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "page export is not configured")
	case errors.Is(err, auth.ErrTokenNotFound):
		httputil.WriteNotFoundError(w, "token not found")
	default:
		observability.FromContext(r.Context()).
			WithError(err).
			WithFields(map[string]interface{}{"method": r.Method, "path": r.URL.Path}).
			Error("request failed")
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
