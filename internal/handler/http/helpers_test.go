package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/internal/upstream"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

const testSession = "sess-1"

type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) ListProducts(ctx context.Context, c domain.Collection) ([]domain.Product, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockUpstream) CreateCart(ctx context.Context, sessionID string) (upstream.Reply, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(upstream.Reply), args.Error(1)
}

func (m *mockUpstream) AddItem(ctx context.Context, sessionID, productID string) (upstream.Reply, error) {
	args := m.Called(ctx, sessionID, productID)
	return args.Get(0).(upstream.Reply), args.Error(1)
}

func (m *mockUpstream) IncreaseItem(ctx context.Context, sessionID, productID string) (upstream.Reply, error) {
	args := m.Called(ctx, sessionID, productID)
	return args.Get(0).(upstream.Reply), args.Error(1)
}

type testEnv struct {
	api     *mockUpstream
	store   *memory.Store
	watcher *memory.Watcher
	buses   *bus.Registry
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, RouterConfig{CORS: middleware.DefaultCORSConfig()})
}

func newTestEnvWith(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := &mockUpstream{}
	store := memory.NewStore()
	watcher := memory.NewWatcher()
	buses := bus.NewRegistry()

	wishlist := service.NewWishlistService(store, buses, event.Noop{}, logger)
	svc := Services{
		Catalog:     service.NewCatalogService(api, wishlist, store, logger),
		Wishlist:    wishlist,
		Cart:        service.NewCartService(api, store, buses, event.Noop{}, logger),
		Preferences: service.NewPreferenceService(store, watcher, logger),
		Buses:       buses,
	}
	router := NewRouter(svc, health.NewHandler(), logger, cfg)
	return &testEnv{api: api, store: store, watcher: watcher, buses: buses, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, tab string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderSessionID, testSession)
	if tab != "" {
		req.Header.Set(middleware.HeaderTabID, tab)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeResponse reads the response body into the standard Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// decodeData re-decodes the envelope's data field into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) httputil.Response {
	t.Helper()
	resp := decodeResponse(t, rec)
	b, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
	return resp
}

func productBody(id, name string) map[string]any {
	return map[string]any{
		"product": map[string]any{"id": id, "name": name, "price": 99.5, "imageUrl": "https://img.example/" + id + ".png"},
	}
}

func price(v float64) *float64 { return &v }

func sampleProducts(n int) []domain.Product {
	out := make([]domain.Product, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = domain.Product{ID: id, Name: "Product " + id, Price: price(10), ImageURL: "https://img.example/" + id}
	}
	return out
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}
