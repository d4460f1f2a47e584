package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler serves cart adds and the cart image cache.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// AddItemRequest is the JSON body of POST /api/v1/cart/items.
type AddItemRequest struct {
	Product *domain.RawProduct `json:"product" validate:"required"`
	Mode    string             `json:"mode" validate:"omitempty,oneof=add add_then_increase"`
}

// AddItemResponse is returned after a successful add.
type AddItemResponse struct {
	ProductID string         `json:"productId"`
	Mode      domain.AddMode `json:"mode"`
	Persisted bool           `json:"persisted"`
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := domain.Normalize(*req.Product)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	mode := domain.AddMode(req.Mode)
	if mode == "" {
		mode = domain.ModeAdd
	}

	res, err := h.service.Add(r.Context(), tabFromRequest(r), p, mode)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:    AddItemResponse{ProductID: res.ProductID, Mode: res.Mode, Persisted: persisted(res.PersistErr)},
		Message: res.Message,
	})
}

// GetImages handles GET /api/v1/cart/images
func (h *CartHandler) GetImages(w http.ResponseWriter, r *http.Request) {
	images := h.service.Images(r.Context(), tabFromRequest(r).SessionID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: images})
}

// InFlight handles GET /api/v1/cart/items/{productId}/pending
func (h *CartHandler) InFlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"productId": id, "pending": h.service.InFlight(tabFromRequest(r), id)},
	})
}
