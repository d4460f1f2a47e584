package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/upstream"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

// MsgAddFailed is shown when an add fails for a reason other than stock.
const MsgAddFailed = "Failed to add item to cart. Please try again."

// CodeCartAddFailed is the error code of a generic add failure.
const CodeCartAddFailed = "CART_ADD_FAILED"

// DefaultAddTimeout bounds a whole add sequence.
const DefaultAddTimeout = 30 * time.Second

// ErrInFlight is returned when the same product is already being added from
// the same tab.
var ErrInFlight = apperrors.Conflict("this product is already being added to the cart")

// CartAPI is the remote cart surface used by the sequencer. Every call acts
// on the cart owned by sessionID.
type CartAPI interface {
	CreateCart(ctx context.Context, sessionID string) (upstream.Reply, error)
	AddItem(ctx context.Context, sessionID, productID string) (upstream.Reply, error)
	IncreaseItem(ctx context.Context, sessionID, productID string) (upstream.Reply, error)
}

// AddResult is the outcome of a successful add. PersistErr is set when the
// image cache could not be updated.
type AddResult struct {
	ProductID  string         `json:"productId"`
	Mode       domain.AddMode `json:"mode"`
	Message    string         `json:"message"`
	PersistErr error          `json:"-"`
}

// CartService sequences cart adds against the remote API and keeps the
// session's cart image cache.
type CartService struct {
	api     CartAPI
	store   storage.Store
	buses   *bus.Registry
	events  event.Publisher
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCartService creates a new cart service.
func NewCartService(api CartAPI, store storage.Store, buses *bus.Registry, events event.Publisher, logger *slog.Logger) *CartService {
	return &CartService{
		api:      api,
		store:    store,
		buses:    buses,
		events:   events,
		logger:   logger,
		timeout:  DefaultAddTimeout,
		inFlight: make(map[string]struct{}),
	}
}

func inFlightKey(tab Tab, productID string) string {
	return tab.Scope() + "#" + productID
}

// InFlight reports whether an add of productID is running for the tab.
func (s *CartService) InFlight(tab Tab, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[inFlightKey(tab, productID)]
	return ok
}

func (s *CartService) acquire(tab Tab, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := inFlightKey(tab, productID)
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *CartService) release(tab Tab, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, inFlightKey(tab, productID))
}

// Add runs the create-cart, add-item and, in ModeAddThenIncrease,
// increase-item calls for p. The terminal call decides the outcome. The
// sequence is detached from ctx cancellation and bounded by its own timeout.
//
// On failure the returned error carries the user-facing message: the
// upstream's own text for stock problems, MsgAddFailed otherwise.
func (s *CartService) Add(ctx context.Context, tab Tab, p domain.Product, mode domain.AddMode) (_ AddResult, err error) {
	if p.ID == "" {
		return AddResult{}, domain.ErrMissingProductID
	}
	if !mode.Valid() {
		return AddResult{}, apperrors.InvalidInput(fmt.Sprintf("unknown add mode %q", mode))
	}
	if !s.acquire(tab, p.ID) {
		cartAdds.WithLabelValues(string(mode), "in_flight").Inc()
		return AddResult{}, ErrInFlight
	}
	defer s.release(tab, p.ID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "CartService.Add")
	defer func() { tracing.EndSpan(span, err) }()

	log := logger.WithContext(ctx, s.logger).With(
		slog.String("product_id", p.ID),
		slog.String("mode", string(mode)),
	)

	if _, err := s.api.CreateCart(ctx, tab.SessionID); err != nil {
		log.DebugContext(ctx, "create cart failed, assuming it exists", slog.String("error", err.Error()))
	}

	reply, err := s.api.AddItem(ctx, tab.SessionID, p.ID)
	if mode == domain.ModeAddThenIncrease {
		if err != nil {
			log.DebugContext(ctx, "add item failed, increasing instead", slog.String("error", err.Error()))
		}
		reply, err = s.api.IncreaseItem(ctx, tab.SessionID, p.ID)
	}
	if err != nil {
		return AddResult{}, s.failure(ctx, log, mode, err)
	}

	res := AddResult{ProductID: p.ID, Mode: mode, Message: reply.Message}
	if res.Message == "" {
		res.Message = fmt.Sprintf("%s added to cart", p.Name)
	}
	res.PersistErr = s.rememberImage(ctx, log, tab.SessionID, p)

	cartAdds.WithLabelValues(string(mode), "success").Inc()
	s.buses.Publish(tab.Scope(), domain.CartChanged())
	s.events.CartChanged(ctx, tab.SessionID, tab.TabID, event.CartChangedData{
		ProductID: p.ID,
		Mode:      mode,
		Message:   res.Message,
	})
	return res, nil
}

func (s *CartService) failure(ctx context.Context, log *slog.Logger, mode domain.AddMode, err error) error {
	var appErr *apperrors.AppError
	if errors.Is(err, apperrors.ErrOutOfStock) && errors.As(err, &appErr) {
		cartAdds.WithLabelValues(string(mode), "out_of_stock").Inc()
		log.InfoContext(ctx, "add to cart rejected for stock", slog.String("message", appErr.Message))
		return apperrors.OutOfStock(appErr.Message)
	}

	cartAdds.WithLabelValues(string(mode), "failed").Inc()
	log.WarnContext(ctx, "add to cart failed", slog.String("error", err.Error()))
	return &apperrors.AppError{
		Code:    CodeCartAddFailed,
		Message: MsgAddFailed,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// rememberImage appends p's image to the cache. The write is skipped when the
// current cache cannot be read, so a backend hiccup never replaces it.
func (s *CartService) rememberImage(ctx context.Context, log *slog.Logger, sessionID string, p domain.Product) error {
	current, err := s.images(ctx, sessionID)
	if err != nil {
		persistFailures.WithLabelValues(string(domain.SlotCartItemsImages)).Inc()
		log.ErrorContext(ctx, "cart image cache read failed, skipping write", slog.String("error", err.Error()))
		return fmt.Errorf("read cart images: %w", err)
	}

	encoded, err := current.With(p.ID, p.ImageURL).Encode()
	if err == nil {
		err = s.store.Set(ctx, sessionID, domain.SlotCartItemsImages, encoded)
	}
	if err != nil {
		persistFailures.WithLabelValues(string(domain.SlotCartItemsImages)).Inc()
		log.ErrorContext(ctx, "cart image cache write failed", slog.String("error", err.Error()))
		return fmt.Errorf("persist cart images: %w", err)
	}
	return nil
}

// Images returns the session's cart image cache. Missing, unreadable and
// malformed values yield an empty cache.
func (s *CartService) Images(ctx context.Context, sessionID string) domain.CartImageCache {
	images, err := s.images(ctx, sessionID)
	if err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "cart image cache read failed", slog.String("error", err.Error()))
		return domain.CartImageCache{}
	}
	return images
}

// images returns backend failures and treats absent or malformed values as
// an empty cache.
func (s *CartService) images(ctx context.Context, sessionID string) (domain.CartImageCache, error) {
	raw, err := s.store.Get(ctx, sessionID, domain.SlotCartItemsImages)
	if err != nil {
		if storage.IsNotFound(err) {
			return domain.CartImageCache{}, nil
		}
		return nil, err
	}
	images, err := domain.ParseCartImages(raw)
	if err != nil {
		malformedSlots.WithLabelValues(string(domain.SlotCartItemsImages)).Inc()
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "malformed cart image cache", slog.String("error", err.Error()))
		return domain.CartImageCache{}, nil
	}
	return images, nil
}
