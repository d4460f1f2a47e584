package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newWishlistService(store storage.Store) (*WishlistService, *bus.Registry, *recordedEvents) {
	buses := bus.NewRegistry()
	events := &recordedEvents{}
	return NewWishlistService(store, buses, events, newTestLogger()), buses, events
}

func TestWishlistLoad_MissingIsEmpty(t *testing.T) {
	svc, _, _ := newWishlistService(memory.NewStore())
	w := svc.Load(context.Background(), "sess-1")
	assert.NotNil(t, w)
	assert.Empty(t, w)
}

func TestWishlistLoad_MalformedIsEmpty(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	svc, _, _ := newWishlistService(store)

	for _, bad := range []string{"{not json", `{"id":"1"}`, "42"} {
		require.NoError(t, store.Set(ctx, "sess-1", domain.SlotWishlist, bad))
		assert.Empty(t, svc.Load(ctx, "sess-1"), bad)
	}
}

func TestWishlistLoad_BackendErrorIsEmpty(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, "sess-1", domain.SlotWishlist).Return("", errors.New("connection refused"))
	svc, _, _ := newWishlistService(store)

	assert.Empty(t, svc.Load(context.Background(), "sess-1"))
}

func TestWishlistToggle_AddThenRemove(t *testing.T) {
	store := memory.NewStore()
	svc, _, events := newWishlistService(store)
	ctx := context.Background()
	p := testProduct("p-1", "Keyboard")

	res, err := svc.Toggle(ctx, testTab(), p)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, "Keyboard added to wishlist", res.Message)
	assert.NoError(t, res.PersistErr)
	assert.True(t, svc.Contains(ctx, "sess-1", "p-1"))

	res, err = svc.Toggle(ctx, testTab(), p)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, "Keyboard removed from wishlist", res.Message)
	assert.Empty(t, res.Wishlist)
	assert.False(t, svc.Contains(ctx, "sess-1", "p-1"))

	raw, err := store.Get(ctx, "sess-1", domain.SlotWishlist)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
	assert.Equal(t, []string{"p-1", "p-1"}, events.wishlist)
}

func TestWishlistToggle_ReadsStorageFresh(t *testing.T) {
	store := memory.NewStore()
	svc, _, _ := newWishlistService(store)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sess-1", domain.SlotWishlist, `[{"productId":"legacy","title":"Old"}]`))

	res, err := svc.Toggle(ctx, testTab(), testProduct("new", "New"))
	require.NoError(t, err)
	require.Len(t, res.Wishlist, 2)
	assert.Equal(t, "legacy", res.Wishlist[0].Key())
	assert.Equal(t, "new", res.Wishlist[1].ID)
	assert.Equal(t, "new", res.Wishlist[1].ProductID)
}

func TestWishlistToggle_MissingID(t *testing.T) {
	svc, _, _ := newWishlistService(memory.NewStore())
	_, err := svc.Toggle(context.Background(), testTab(), domain.Product{Name: "No id"})
	assert.ErrorIs(t, err, domain.ErrMissingProductID)
}

func TestWishlistToggle_WriteFailureStillSucceeds(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, "sess-1", domain.SlotWishlist).Return("", storage.ErrSlotNotFound(domain.SlotWishlist))
	store.On("Set", mock.Anything, "sess-1", domain.SlotWishlist, mock.Anything).Return(errors.New("disk full"))
	svc, buses, _ := newWishlistService(store)

	var notified []domain.Notification
	sub := buses.Subscribe(testTab().Scope(), domain.SignalWishlistChanged, func(n domain.Notification) {
		notified = append(notified, n)
	})
	defer sub.Unsubscribe()

	res, err := svc.Toggle(context.Background(), testTab(), testProduct("p-1", "Mouse"))
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, "Mouse added to wishlist", res.Message)
	require.Error(t, res.PersistErr)
	assert.Contains(t, res.PersistErr.Error(), "disk full")

	require.Len(t, notified, 1)
	assert.Len(t, notified[0].Wishlist, 1)
}

func TestWishlistToggle_ReadFailureKeepsStoredWishlist(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	svc, buses, events := newWishlistService(store)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Toggle(ctx, testTab(), testProduct(id, id))
		require.NoError(t, err)
	}
	before, err := store.Get(ctx, "sess-1", domain.SlotWishlist)
	require.NoError(t, err)
	writes := store.setCount()

	var notified int
	sub := buses.Subscribe(testTab().Scope(), domain.SignalWishlistChanged, func(domain.Notification) { notified++ })
	defer sub.Unsubscribe()

	store.failNextGet()
	res, err := svc.Toggle(ctx, testTab(), testProduct("d", "d"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.CodeOf(err))
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
	assert.Empty(t, res.Wishlist)

	assert.Equal(t, writes, store.setCount(), "no write after a failed read")
	assert.Zero(t, notified)
	assert.Len(t, events.wishlist, 3)

	after, err := store.Get(ctx, "sess-1", domain.SlotWishlist)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, svc.Load(ctx, "sess-1"), 3)
}

func TestWishlistToggle_NotifiesOnlyWishlistSubscribersOfTab(t *testing.T) {
	svc, buses, _ := newWishlistService(memory.NewStore())
	tab := testTab()

	wishlistHits, cartHits, otherTabHits := 0, 0, 0
	s1 := buses.Subscribe(tab.Scope(), domain.SignalWishlistChanged, func(domain.Notification) { wishlistHits++ })
	s2 := buses.Subscribe(tab.Scope(), domain.SignalCartChanged, func(domain.Notification) { cartHits++ })
	s3 := buses.Subscribe(Tab{SessionID: "sess-1", TabID: "other"}.Scope(), domain.SignalWishlistChanged, func(domain.Notification) { otherTabHits++ })
	defer s1.Unsubscribe()
	defer s2.Unsubscribe()
	defer s3.Unsubscribe()

	_, err := svc.Toggle(context.Background(), tab, testProduct("p-1", "Mouse"))
	require.NoError(t, err)

	assert.Equal(t, 1, wishlistHits)
	assert.Equal(t, 0, cartHits)
	assert.Equal(t, 0, otherTabHits)
}

func TestView_RefreshesFromStorageOnNotification(t *testing.T) {
	store := memory.NewStore()
	svc, _, _ := newWishlistService(store)
	ctx := context.Background()
	tab := testTab()

	var changes int
	listing := svc.Mount(ctx, tab, func(domain.Wishlist) { changes++ })
	detail := svc.Mount(ctx, tab, nil)
	defer detail.Unmount()

	assert.Empty(t, listing.Entries())

	_, err := svc.Toggle(ctx, tab, testProduct("p-1", "Mouse"))
	require.NoError(t, err)

	assert.True(t, listing.Contains("p-1"))
	assert.True(t, detail.Contains("p-1"))
	assert.Equal(t, 1, changes)

	listing.Unmount()
	listing.Unmount()
	_, err = svc.Toggle(ctx, tab, testProduct("p-1", "Mouse"))
	require.NoError(t, err)

	assert.True(t, listing.Contains("p-1"), "unmounted view keeps its last copy")
	assert.False(t, detail.Contains("p-1"))
	assert.Equal(t, 1, changes)
}

func TestView_FallsBackToPayloadWhenStorageUnreachable(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, "sess-1", domain.SlotWishlist).Return("", storage.ErrSlotNotFound(domain.SlotWishlist)).Once()
	store.On("Get", mock.Anything, "sess-1", domain.SlotWishlist).Return("", errors.New("timeout"))
	svc, buses, _ := newWishlistService(store)

	view := svc.Mount(context.Background(), testTab(), nil)
	defer view.Unmount()

	payload := domain.Wishlist{domain.NewWishlistEntry(testProduct("p-9", "Cable"))}
	buses.Publish(testTab().Scope(), domain.WishlistChanged(payload))

	assert.Equal(t, payload, view.Entries())
}
