package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/upstream"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTab() Tab {
	return Tab{SessionID: "sess-1", TabID: "main"}
}

func price(v float64) *float64 { return &v }

func testProduct(id, name string) domain.Product {
	return domain.Product{ID: id, Name: name, Price: price(49.99), ImageURL: "https://img.example/" + id + ".png"}
}

// --- Mock store ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, scope string, slot domain.Slot) (string, error) {
	args := m.Called(ctx, scope, slot)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, scope string, slot domain.Slot, value string) error {
	return m.Called(ctx, scope, slot, value).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Flaky store ---

// flakyStore wraps a real store and fails the next failGets reads.
type flakyStore struct {
	storage.Store
	mu       sync.Mutex
	failGets int
	sets     int
}

func (f *flakyStore) failNextGet() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets++
}

func (f *flakyStore) Get(ctx context.Context, scope string, slot domain.Slot) (string, error) {
	f.mu.Lock()
	if f.failGets > 0 {
		f.failGets--
		f.mu.Unlock()
		return "", errors.New("i/o timeout")
	}
	f.mu.Unlock()
	return f.Store.Get(ctx, scope, slot)
}

func (f *flakyStore) Set(ctx context.Context, scope string, slot domain.Slot, value string) error {
	f.mu.Lock()
	f.sets++
	f.mu.Unlock()
	return f.Store.Set(ctx, scope, slot, value)
}

func (f *flakyStore) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// --- Mock cart API ---

type mockCartAPI struct {
	mock.Mock
}

func (m *mockCartAPI) CreateCart(ctx context.Context, sessionID string) (upstream.Reply, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(upstream.Reply), args.Error(1)
}

func (m *mockCartAPI) AddItem(ctx context.Context, sessionID, productID string) (upstream.Reply, error) {
	args := m.Called(ctx, sessionID, productID)
	return args.Get(0).(upstream.Reply), args.Error(1)
}

func (m *mockCartAPI) IncreaseItem(ctx context.Context, sessionID, productID string) (upstream.Reply, error) {
	args := m.Called(ctx, sessionID, productID)
	return args.Get(0).(upstream.Reply), args.Error(1)
}

// --- Mock product lister ---

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListProducts(ctx context.Context, c domain.Collection) ([]domain.Product, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

// --- Recording event publisher ---

type recordedEvents struct {
	mu       sync.Mutex
	wishlist []string
	cart     []event.CartChangedData
}

func (r *recordedEvents) WishlistChanged(_ context.Context, _, _ string, productID string, _ bool, _ domain.Wishlist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wishlist = append(r.wishlist, productID)
}

func (r *recordedEvents) CartChanged(_ context.Context, _, _ string, data event.CartChangedData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = append(r.cart, data)
}
