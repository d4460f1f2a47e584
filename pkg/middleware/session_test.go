package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureSession(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, Session, bool) {
	t.Helper()

	var (
		got Session
		ok  bool
	)
	h := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got, ok
}

func TestRequireSession_MissingHeader_Returns401(t *testing.T) {
	rec, _, called := captureSession(t, httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "UNAUTHORIZED", body["error"]["code"])
}

func TestRequireSession_DefaultTab(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)
	req.Header.Set(HeaderSessionID, "profile-1")

	rec, s, ok := captureSession(t, req)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Session{ID: "profile-1", TabID: DefaultTabID}, s)
}

func TestRequireSession_HeaderBeatsQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?session=from-query&tab=q", nil)
	req.Header.Set(HeaderSessionID, "from-header")
	req.Header.Set(HeaderTabID, "h")

	_, s, ok := captureSession(t, req)
	require.True(t, ok)
	assert.Equal(t, Session{ID: "from-header", TabID: "h"}, s)
}

func TestRequireSession_QueryFallback(t *testing.T) {
	_, s, ok := captureSession(t, httptest.NewRequest(http.MethodGet, "/api/v1/stream?session=abc&tab=tab-9", nil))
	require.True(t, ok)
	assert.Equal(t, Session{ID: "abc", TabID: "tab-9"}, s)
}

func TestRequireSession_MalformedIdentifiers(t *testing.T) {
	for _, tc := range []struct{ session, tab string }{
		{"a/b", ""},
		{"ok", "x:y"},
		{strings.Repeat("s", 129), ""},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderSessionID, tc.session)
		if tc.tab != "" {
			req.Header.Set(HeaderTabID, tc.tab)
		}
		rec, _, called := captureSession(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "session=%q tab=%q", tc.session, tc.tab)
		assert.False(t, called)
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("b7f3c2e1-0a4d-4e59-9c1b-2f6a8d7e5c30"))
	assert.True(t, ValidIdentifier("tab_1.main"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("has space"))
	assert.False(t, ValidIdentifier("ünicode"))
}

func TestNoStore_SetsPrivateHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, HeaderSessionID, rec.Header().Get("Vary"))
}

func TestCacheControl_OnlyOnGET(t *testing.T) {
	h := CacheControl(60)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}
