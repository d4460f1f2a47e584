package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// CatalogHandler serves product listings and the selected product.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// SelectResponse is returned after selecting a product.
type SelectResponse struct {
	Product   domain.Product `json:"product"`
	Persisted bool           `json:"persisted"`
}

// ListProducts handles GET /api/v1/products?collection=all|our|pc&page=N
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	collection := domain.Collection(r.URL.Query().Get("collection"))
	if collection == "" {
		collection = domain.CollectionAll
	}

	res, err := h.service.ListPage(r.Context(), tabFromRequest(r).SessionID, collection, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(res))
}

// SelectProduct handles PUT /api/v1/products/selected
func (h *CatalogHandler) SelectProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductPayload
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := domain.Normalize(*req.Product)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.Select(r.Context(), tabFromRequest(r).SessionID, p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SelectResponse{Product: res.Product, Persisted: persisted(res.PersistErr)},
	})
}

// GetSelected handles GET /api/v1/products/selected
func (h *CatalogHandler) GetSelected(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Selected(r.Context(), tabFromRequest(r).SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}
