package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// PreferenceHandler serves darkMode and role.
type PreferenceHandler struct {
	service *service.PreferenceService
	logger  *slog.Logger
}

// NewPreferenceHandler creates a new preference handler.
func NewPreferenceHandler(svc *service.PreferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{service: svc, logger: logger}
}

// PreferencesResponse is returned after an update.
type PreferencesResponse struct {
	Preferences domain.Preferences `json:"preferences"`
	Changed     []domain.Slot      `json:"changed"`
	Persisted   bool               `json:"persisted"`
}

// Get handles GET /api/v1/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs := h.service.Get(r.Context(), tabFromRequest(r).SessionID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: prefs})
}

// Update handles PUT /api/v1/preferences
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.PreferencesInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.service.Set(r.Context(), tabFromRequest(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: PreferencesResponse{Preferences: res.Preferences, Changed: res.Changed, Persisted: persisted(res.PersistErr)},
	})
}
