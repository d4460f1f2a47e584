package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ToggleResult is the outcome of a wishlist toggle. PersistErr is set when
// the new wishlist could not be written; the toggle itself still succeeded.
type ToggleResult struct {
	Wishlist   domain.Wishlist `json:"wishlist"`
	Added      bool            `json:"added"`
	Message    string          `json:"message"`
	PersistErr error           `json:"-"`
}

// WishlistService reads and toggles the session wishlist.
type WishlistService struct {
	store  storage.Store
	buses  *bus.Registry
	events event.Publisher
	logger *slog.Logger
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(store storage.Store, buses *bus.Registry, events event.Publisher, logger *slog.Logger) *WishlistService {
	return &WishlistService{store: store, buses: buses, events: events, logger: logger}
}

// Load returns the stored wishlist. Missing, unreadable and malformed values
// all yield an empty wishlist.
func (s *WishlistService) Load(ctx context.Context, sessionID string) domain.Wishlist {
	w, err := s.load(ctx, sessionID)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "wishlist read failed, using empty wishlist", slog.String("error", err.Error()))
		return domain.Wishlist{}
	}
	return w
}

// load distinguishes backend failures, which are returned, from absent or
// malformed values, which yield an empty wishlist.
func (s *WishlistService) load(ctx context.Context, sessionID string) (domain.Wishlist, error) {
	raw, err := s.store.Get(ctx, sessionID, domain.SlotWishlist)
	if err != nil {
		if storage.IsNotFound(err) {
			return domain.Wishlist{}, nil
		}
		return nil, err
	}
	w, err := domain.ParseWishlist(raw)
	if err != nil {
		malformedSlots.WithLabelValues(string(domain.SlotWishlist)).Inc()
		s.log(ctx).WarnContext(ctx, "malformed wishlist in storage, using empty wishlist", slog.String("error", err.Error()))
		return domain.Wishlist{}, nil
	}
	return w, nil
}

// Contains reports whether the product is in the stored wishlist.
func (s *WishlistService) Contains(ctx context.Context, sessionID, productID string) bool {
	return s.Load(ctx, sessionID).Contains(productID)
}

// Toggle adds or removes p. It re-reads storage rather than trusting any
// in-memory copy, writes the full new wishlist back and notifies the tab.
// When storage cannot be read nothing is written and an Unavailable error is
// returned, so the stored wishlist is never replaced by a partial one.
func (s *WishlistService) Toggle(ctx context.Context, tab Tab, p domain.Product) (_ ToggleResult, err error) {
	if p.ID == "" {
		return ToggleResult{}, domain.ErrMissingProductID
	}

	ctx, span := tracing.StartSpan(ctx, "WishlistService.Toggle")
	defer func() { tracing.EndSpan(span, err) }()

	current, err := s.load(ctx, tab.SessionID)
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "wishlist read failed, toggle aborted", slog.String("error", err.Error()))
		return ToggleResult{}, apperrors.Unavailable("wishlist storage unavailable", err)
	}
	next, added := current.Toggle(p)

	res := ToggleResult{Wishlist: next, Added: added}
	if added {
		res.Message = fmt.Sprintf("%s added to wishlist", p.Name)
		wishlistToggles.WithLabelValues("added").Inc()
	} else {
		res.Message = fmt.Sprintf("%s removed from wishlist", p.Name)
		wishlistToggles.WithLabelValues("removed").Inc()
	}

	res.PersistErr = s.write(ctx, tab.SessionID, next)

	s.buses.Publish(tab.Scope(), domain.WishlistChanged(next))
	s.events.WishlistChanged(ctx, tab.SessionID, tab.TabID, p.ID, added, next)
	return res, nil
}

func (s *WishlistService) write(ctx context.Context, sessionID string, w domain.Wishlist) error {
	encoded, err := w.Encode()
	if err == nil {
		err = s.store.Set(ctx, sessionID, domain.SlotWishlist, encoded)
	}
	if err != nil {
		persistFailures.WithLabelValues(string(domain.SlotWishlist)).Inc()
		s.log(ctx).ErrorContext(ctx, "wishlist write failed", slog.String("error", err.Error()))
		return fmt.Errorf("persist wishlist: %w", err)
	}
	return nil
}

func (s *WishlistService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}

// View is the in-memory wishlist copy held by one mounted component. It
// refreshes from storage whenever the tab publishes a wishlist change.
type View struct {
	svc      *WishlistService
	ctx      context.Context
	tab      Tab
	onChange func(domain.Wishlist)

	mu      sync.RWMutex
	entries domain.Wishlist
	sub     *bus.Subscription
}

// Mount loads the wishlist and subscribes to changes on the tab bus.
// onChange, if set, is called with the refreshed copy after each change.
// Unmount must be called when the component goes away.
func (s *WishlistService) Mount(ctx context.Context, tab Tab, onChange func(domain.Wishlist)) *View {
	v := &View{
		svc:      s,
		ctx:      ctx,
		tab:      tab,
		onChange: onChange,
		entries:  s.Load(ctx, tab.SessionID),
	}
	v.sub = s.buses.Subscribe(tab.Scope(), domain.SignalWishlistChanged, v.refresh)
	return v
}

func (v *View) refresh(n domain.Notification) {
	w, err := v.svc.load(v.ctx, v.tab.SessionID)
	if err != nil {
		// Storage is unreachable; the publisher's copy is the best we have.
		w = n.Wishlist
	}
	v.mu.Lock()
	v.entries = w
	v.mu.Unlock()

	if v.onChange != nil {
		v.onChange(w)
	}
}

// Unmount unsubscribes the view. It is safe to call more than once.
func (v *View) Unmount() {
	v.sub.Unsubscribe()
}

// Entries returns the view's current copy.
func (v *View) Entries() domain.Wishlist {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(domain.Wishlist, len(v.entries))
	copy(out, v.entries)
	return out
}

// Contains reports whether the view's copy holds productID.
func (v *View) Contains(productID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.entries.Contains(productID)
}
