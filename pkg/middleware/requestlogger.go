package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, session_id, tab_id, trace_id, and span_id, then stores
// it in context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// Mount it after RequestLogging (which sets correlation_id) and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if s, ok := SessionFromContext(ctx); ok {
				ctx = logger.WithSession(ctx, s.ID, s.TabID)
			} else if sid := r.Header.Get(HeaderSessionID); ValidIdentifier(sid) {
				tab := r.Header.Get(HeaderTabID)
				if !ValidIdentifier(tab) {
					tab = DefaultTabID
				}
				ctx = logger.WithSession(ctx, sid, tab)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
