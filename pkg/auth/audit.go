package auth

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/laman/pkg/observability"
)

// Audit action names
const (
	ActionAuthSuccess        = "auth.success"
	ActionAuthFailure        = "auth.failure"
	ActionTokenCreate        = "token.create"
	ActionTokenRevoke        = "token.revoke"
	ActionSubscribe          = "subscription.create"
	ActionCancel             = "subscription.cancel"
	ActionRateLimitExceeded  = "ratelimit.exceeded"
	ActionGenerationRejected = "generation.rejected"
)

// Audit outcomes
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditLogger writes security events as structured log entries
type AuditLogger struct {
	logger *observability.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &AuditLogger{logger: logger.WithField("component", "audit")}
}

// LogFromRequest records action on resource with its outcome. The caller's
// principal, if any, is read from the request context.
func (al *AuditLogger) LogFromRequest(r *http.Request, action, resource, status string, err error) {
	fields := map[string]interface{}{
		"action":     action,
		"resource":   resource,
		"status":     status,
		"ip_address": ClientIP(r),
		"user_agent": r.UserAgent(),
	}
	if requestID := observability.GetRequestID(r.Context()); requestID != "" {
		fields["request_id"] = requestID
	}
	if principal := PrincipalFromContext(r.Context()); principal != nil {
		fields["user_id"] = principal.UserID
		fields["auth_method"] = principal.Method
	}

	entry := al.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	if status == StatusSuccess {
		entry.Info("audit event")
	} else {
		entry.Warn("audit event")
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}
