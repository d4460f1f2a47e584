package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ProductLister fetches product collections.
type ProductLister interface {
	ListProducts(ctx context.Context, collection domain.Collection) ([]domain.Product, error)
}

// ListedProduct is a product as shown on a listing grid.
type ListedProduct struct {
	domain.Product
	DisplayPrice string `json:"displayPrice"`
	InWishlist   bool   `json:"inWishlist"`
}

// SelectResult is the outcome of selecting a product for the detail view.
type SelectResult struct {
	Product    domain.Product `json:"product"`
	PersistErr error          `json:"-"`
}

// CatalogService serves paginated listings and the selected product.
type CatalogService struct {
	api      ProductLister
	wishlist *WishlistService
	store    storage.Store
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(api ProductLister, wishlist *WishlistService, store storage.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{api: api, wishlist: wishlist, store: store, logger: logger}
}

// ListPage fetches the whole collection, slices out the requested page and
// marks the products already in the session's wishlist.
func (s *CatalogService) ListPage(ctx context.Context, sessionID string, collection domain.Collection, params pagination.Params) (_ pagination.Result[ListedProduct], err error) {
	if !collection.Valid() {
		return pagination.Result[ListedProduct]{}, apperrors.InvalidInput(fmt.Sprintf("unknown collection %q", collection))
	}

	ctx, span := tracing.StartSpan(ctx, "CatalogService.ListPage")
	defer func() { tracing.EndSpan(span, err) }()

	products, err := s.api.ListProducts(ctx, collection)
	if err != nil {
		return pagination.Result[ListedProduct]{}, fmt.Errorf("list %s products: %w", collection, err)
	}

	page := pagination.Paginate(products, params)
	saved := s.wishlist.Load(ctx, sessionID)

	listed := make([]ListedProduct, len(page.Data))
	for i, p := range page.Data {
		listed[i] = ListedProduct{
			Product:      p,
			DisplayPrice: p.DisplayPrice(),
			InWishlist:   saved.Contains(p.ID),
		}
	}

	return pagination.Result[ListedProduct]{
		Data:       listed,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}, nil
}

// Select stores p as the product for the detail view.
func (s *CatalogService) Select(ctx context.Context, sessionID string, p domain.Product) (SelectResult, error) {
	if p.ID == "" {
		return SelectResult{}, domain.ErrMissingProductID
	}

	res := SelectResult{Product: p}
	encoded, err := json.Marshal(p)
	if err == nil {
		err = s.store.Set(ctx, sessionID, domain.SlotSelectedProduct, string(encoded))
	}
	if err != nil {
		persistFailures.WithLabelValues(string(domain.SlotSelectedProduct)).Inc()
		logger.WithContext(ctx, s.logger).ErrorContext(ctx, "selected product write failed", slog.String("error", err.Error()))
		res.PersistErr = fmt.Errorf("persist selected product: %w", err)
	}
	return res, nil
}

// Selected returns the product stored by Select. A missing or malformed
// value is reported as not found.
func (s *CatalogService) Selected(ctx context.Context, sessionID string) (domain.Product, error) {
	notFound := apperrors.NotFound("selected product", "for session")

	raw, err := s.store.Get(ctx, sessionID, domain.SlotSelectedProduct)
	if err != nil {
		if storage.IsNotFound(err) {
			return domain.Product{}, notFound
		}
		return domain.Product{}, fmt.Errorf("read selected product: %w", err)
	}

	var rp domain.RawProduct
	if err := json.Unmarshal([]byte(raw), &rp); err != nil {
		malformedSlots.WithLabelValues(string(domain.SlotSelectedProduct)).Inc()
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "malformed selected product", slog.String("error", err.Error()))
		return domain.Product{}, notFound
	}
	p, err := domain.Normalize(rp)
	if err != nil {
		return domain.Product{}, notFound
	}
	return p, nil
}
