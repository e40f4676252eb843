package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError string
	}{
		{name: "valid JSON", body: `{"title": "Crumb & Co"}`},
		{name: "invalid JSON", body: `{invalid}`, expectError: "invalid JSON"},
		{name: "wrong type", body: `{"title": 5}`, expectError: "invalid JSON"},
		{name: "empty body", body: ``, expectError: "request body is required"},
		{name: "trailing document", body: `{"title": "a"}{"title": "b"}`, expectError: "unexpected data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/generate", bytes.NewBufferString(tt.body))
			var dest struct {
				Title string `json:"title"`
			}

			err := ParseJSON(req, &dest)

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Crumb & Co", dest.Title)
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest("POST", "/generate", bytes.NewBufferString(`{invalid}`))
	w := httptest.NewRecorder()

	var dest map[string]string
	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
}

func TestParsePathInt64OrError(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantID     int64
		wantOK     bool
		wantStatus int
	}{
		{name: "valid", path: "/pages/42", wantID: 42, wantOK: true, wantStatus: http.StatusOK},
		{name: "not a number", path: "/pages/abc", wantStatus: http.StatusBadRequest},
		{name: "zero", path: "/pages/0", wantStatus: http.StatusBadRequest},
		{name: "negative", path: "/pages/-3", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int64
			var gotOK bool

			router := mux.NewRouter()
			router.HandleFunc("/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
				gotID, gotOK = ParsePathInt64OrError(w, r, "id")
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantID, gotID)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestParsePathInt64_Missing(t *testing.T) {
	_, err := ParsePathInt64(httptest.NewRequest("GET", "/pages", nil), "id")
	assert.EqualError(t, err, "missing path parameter: id")
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/subscription/history?limit=50", nil)
	val, err := ParseQueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 50, val)

	req = httptest.NewRequest("GET", "/subscription/history", nil)
	val, err = ParseQueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, val)

	req = httptest.NewRequest("GET", "/subscription/history?limit=lots", nil)
	_, err = ParseQueryInt(req, "limit", 20)
	assert.Error(t, err)
}
