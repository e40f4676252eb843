package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/middleware"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/pages"
	"github.com/platinummonkey/laman/pkg/plans"
)

const (
	ownerToken = "laman_b3duZXI"
	otherToken = "laman_b3RoZXI"
	ownerID    = int64(1)
	otherID    = int64(2)
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type mockTokenValidator struct{}

func (mockTokenValidator) ValidateToken(ctx context.Context, token string) (*auth.Principal, error) {
	switch token {
	case ownerToken:
		return &auth.Principal{UserID: ownerID, Email: "owner@example.com", Method: auth.MethodToken, TokenID: 11}, nil
	case otherToken:
		return &auth.Principal{UserID: otherID, Email: "other@example.com", Method: auth.MethodToken, TokenID: 12}, nil
	}
	return nil, auth.ErrInvalidToken
}

type mockPlans struct {
	listActiveFunc func(ctx context.Context) ([]*plans.Plan, error)
}

func (m *mockPlans) ListActive(ctx context.Context) ([]*plans.Plan, error) {
	return m.listActiveFunc(ctx)
}

type mockSubscriptions struct {
	usageFunc     func(ctx context.Context, userID int64) (*entitlements.UsageSummary, error)
	subscribeFunc func(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error)
	cancelFunc    func(ctx context.Context, userID int64) error
	historyFunc   func(ctx context.Context, userID int64, limit int) ([]*entitlements.Subscription, error)
}

func (m *mockSubscriptions) Usage(ctx context.Context, userID int64) (*entitlements.UsageSummary, error) {
	return m.usageFunc(ctx, userID)
}

func (m *mockSubscriptions) Subscribe(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error) {
	return m.subscribeFunc(ctx, userID, planID)
}

func (m *mockSubscriptions) Cancel(ctx context.Context, userID int64) error {
	return m.cancelFunc(ctx, userID)
}

func (m *mockSubscriptions) History(ctx context.Context, userID int64, limit int) ([]*entitlements.Subscription, error) {
	return m.historyFunc(ctx, userID, limit)
}

type mockPages struct {
	generateFunc   func(ctx context.Context, userID int64, req pages.Request) (*pages.Page, error)
	getFunc        func(ctx context.Context, userID, id int64) (*pages.Page, error)
	updateFunc     func(ctx context.Context, userID, id int64, req pages.Request) (*pages.Page, error)
	deleteFunc     func(ctx context.Context, userID, id int64) error
	listRecentFunc func(ctx context.Context, userID int64, limit int) ([]*pages.Page, error)
	exportFunc     func(ctx context.Context, userID, id int64) (*pages.Export, error)
	exportEnabled  bool
}

func (m *mockPages) Generate(ctx context.Context, userID int64, req pages.Request) (*pages.Page, error) {
	return m.generateFunc(ctx, userID, req)
}

func (m *mockPages) Get(ctx context.Context, userID, id int64) (*pages.Page, error) {
	return m.getFunc(ctx, userID, id)
}

func (m *mockPages) Update(ctx context.Context, userID, id int64, req pages.Request) (*pages.Page, error) {
	return m.updateFunc(ctx, userID, id, req)
}

func (m *mockPages) Delete(ctx context.Context, userID, id int64) error {
	return m.deleteFunc(ctx, userID, id)
}

func (m *mockPages) ListRecent(ctx context.Context, userID int64, limit int) ([]*pages.Page, error) {
	return m.listRecentFunc(ctx, userID, limit)
}

func (m *mockPages) Export(ctx context.Context, userID, id int64) (*pages.Export, error) {
	return m.exportFunc(ctx, userID, id)
}

func (m *mockPages) ExportEnabled() bool {
	return m.exportEnabled
}

type mockTokens struct {
	createFunc func(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*auth.APIToken, string, error)
	listFunc   func(ctx context.Context, userID int64) ([]*auth.APIToken, error)
	revokeFunc func(ctx context.Context, userID, tokenID int64) error
}

func (m *mockTokens) CreateToken(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*auth.APIToken, string, error) {
	return m.createFunc(ctx, userID, name, expiresAt)
}

func (m *mockTokens) ListUserTokens(ctx context.Context, userID int64) ([]*auth.APIToken, error) {
	return m.listFunc(ctx, userID)
}

func (m *mockTokens) RevokeToken(ctx context.Context, userID, tokenID int64) error {
	return m.revokeFunc(ctx, userID, tokenID)
}

type testServer struct {
	server        *Server
	plans         *mockPlans
	subscriptions *mockSubscriptions
	pages         *mockPages
	tokens        *mockTokens
	logs          *bytes.Buffer
}

func newTestServer(t *testing.T, configure func(*Options)) *testServer {
	t.Helper()

	ts := &testServer{
		plans:         &mockPlans{},
		subscriptions: &mockSubscriptions{},
		pages:         &mockPages{},
		tokens:        &mockTokens{},
		logs:          &bytes.Buffer{},
	}
	opts := Options{
		Plans:         ts.plans,
		Subscriptions: ts.subscriptions,
		Pages:         ts.pages,
		Tokens:        ts.tokens,
		Auth:          middleware.NewAuthMiddleware(mockTokenValidator{}, false),
		Logger:        observability.NewLogger(observability.DebugLevel, ts.logs),
	}
	if configure != nil {
		configure(&opts)
	}

	ts.server = NewServer(opts)
	ts.server.Now = func() time.Time { return testNow }
	return ts
}

// do sends a request as the holder of token; an empty token sends none
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), "body: %s", w.Body.String())
}
