package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// WishlistHandler serves the session wishlist.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(svc *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: logger}
}

// ToggleResponse is returned after a wishlist toggle.
type ToggleResponse struct {
	Wishlist  domain.Wishlist `json:"wishlist"`
	Added     bool            `json:"added"`
	Persisted bool            `json:"persisted"`
}

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl := h.service.Load(r.Context(), tabFromRequest(r).SessionID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wl})
}

// Toggle handles POST /api/v1/wishlist/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.service.Toggle(r.Context(), tabFromRequest(r), p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data:    ToggleResponse{Wishlist: res.Wishlist, Added: res.Added, Persisted: persisted(res.PersistErr)},
		Message: res.Message,
	})
}
