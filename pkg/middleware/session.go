package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// Session headers. Browsers cannot set headers on websocket upgrades, so the
// session and tab query parameters are accepted as a fallback.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderTabID     = "X-Tab-ID"
	QuerySessionID  = "session"
	QueryTabID      = "tab"
	DefaultTabID    = "main"

	maxIdentifierLen = 128
)

type sessionKeyType struct{}

var sessionKey sessionKeyType

// Session identifies a browser profile and one of its tabs.
type Session struct {
	ID    string
	TabID string
}

// RequireSession rejects requests without a valid session identifier with 401
// and stores the resolved Session in the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(HeaderSessionID)
		if sessionID == "" {
			sessionID = r.URL.Query().Get(QuerySessionID)
		}
		if sessionID == "" {
			writeMiddlewareError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+HeaderSessionID+" header")
			return
		}
		if !ValidIdentifier(sessionID) {
			writeMiddlewareError(w, http.StatusBadRequest, "INVALID_INPUT", "malformed session identifier")
			return
		}

		tabID := r.Header.Get(HeaderTabID)
		if tabID == "" {
			tabID = r.URL.Query().Get(QueryTabID)
		}
		if tabID == "" {
			tabID = DefaultTabID
		}
		if !ValidIdentifier(tabID) {
			writeMiddlewareError(w, http.StatusBadRequest, "INVALID_INPUT", "malformed tab identifier")
			return
		}

		ctx := WithSession(r.Context(), Session{ID: sessionID, TabID: tabID})
		if known, _ := logger.SessionFromContext(ctx); known == "" {
			l := logger.FromContext(ctx).With(
				slog.String("session_id", sessionID),
				slog.String("tab_id", tabID),
			)
			ctx = logger.NewContext(logger.WithSession(ctx, sessionID, tabID), l)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the Session stored by RequireSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// ValidIdentifier reports whether id is usable as a session or tab identifier.
// Identifiers end up inside storage keys and bus scopes, so separators are refused.
func ValidIdentifier(id string) bool {
	if id == "" || len(id) > maxIdentifierLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
