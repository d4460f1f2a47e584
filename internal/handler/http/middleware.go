package http

import (
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ProductPayload wraps a product as the browser holds it.
type ProductPayload struct {
	Product *domain.RawProduct `json:"product" validate:"required"`
}

// tabFromRequest returns the tab established by middleware.RequireSession.
func tabFromRequest(r *http.Request) service.Tab {
	s, _ := middleware.SessionFromContext(r.Context())
	return service.Tab{SessionID: s.ID, TabID: s.TabID}
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func persisted(err error) bool {
	return err == nil
}
