package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/observability"
)

func TestAuditLogger_LogFromRequest(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(observability.NewLogger(observability.DebugLevel, &buf))

	r := httptest.NewRequest("POST", "/subscription", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r = r.WithContext(WithPrincipal(r.Context(), &Principal{UserID: 5, Method: MethodToken}))

	audit.LogFromRequest(r, ActionSubscribe, "plan:2", StatusFailure, errors.New("plan not found"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ActionSubscribe, entry["action"])
	assert.Equal(t, "203.0.113.9", entry["ip_address"])
	assert.Equal(t, float64(5), entry["user_id"])
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "plan not found", entry["error"])
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1:1234", ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r))
}

func TestPrincipalFromContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Nil(t, PrincipalFromContext(r.Context()))

	ctx := WithPrincipal(r.Context(), &Principal{UserID: 3})
	assert.Equal(t, int64(3), PrincipalFromContext(ctx).UserID)
	userID, ok := observability.GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(3), userID)
}
