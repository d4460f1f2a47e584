package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/bus"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/logger"
)

// Stream frame types.
const (
	FrameSnapshot           = "snapshot"
	FrameWishlistChanged    = "wishlist.changed"
	FrameCartChanged        = "cart.changed"
	FramePreferencesChanged = "preferences.changed"
)

const (
	streamSendBuffer = 32
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var streamConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_stream_connections",
	Help: "Open websocket stream connections.",
})

// Frame is one JSON message pushed to a connected tab. Snapshot and
// wishlist.changed frames always carry the wishlist, encoding an empty one as
// [] so clients can clear their favorites.
type Frame struct {
	Type        string                   `json:"type"`
	Wishlist    *domain.Wishlist         `json:"wishlist,omitempty"`
	Preferences *domain.Preferences      `json:"preferences,omitempty"`
	Change      *domain.PreferenceChange `json:"change,omitempty"`
}

// StreamHandler upgrades a tab to a websocket and pushes its state changes.
type StreamHandler struct {
	wishlist *service.WishlistService
	prefs    *service.PreferenceService
	buses    *bus.Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a stream handler. allowedOrigins follows the CORS
// configuration; "*" or an empty list accepts any origin.
func NewStreamHandler(wishlist *service.WishlistService, prefs *service.PreferenceService, buses *bus.Registry, allowedOrigins []string, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		wishlist: wishlist,
		prefs:    prefs,
		buses:    buses,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Serve handles GET /api/v1/stream
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	tab := tabFromRequest(r)
	log := logger.WithContext(r.Context(), h.logger)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	streamConnections.Inc()
	defer streamConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &streamConn{conn: conn, send: make(chan Frame, streamSendBuffer), done: make(chan struct{})}

	view := h.wishlist.Mount(ctx, tab, func(wl domain.Wishlist) {
		c.push(Frame{Type: FrameWishlistChanged, Wishlist: wishlistPayload(wl)})
	})
	defer view.Unmount()

	cartSub := h.buses.Subscribe(tab.Scope(), domain.SignalCartChanged, func(domain.Notification) {
		c.push(Frame{Type: FrameCartChanged})
	})
	defer cartSub.Unsubscribe()

	stopWatch, err := h.prefs.Watch(ctx, tab.SessionID, func(change domain.PreferenceChange) {
		// The writing tab already has the new value from its PUT response.
		if change.SourceTab == tab.TabID {
			return
		}
		c.push(Frame{Type: FramePreferencesChanged, Change: &change})
	})
	if err != nil {
		log.WarnContext(ctx, "preference watch unavailable", slog.String("error", err.Error()))
	} else {
		defer stopWatch()
	}

	prefs := h.prefs.Get(ctx, tab.SessionID)
	c.push(Frame{Type: FrameSnapshot, Wishlist: wishlistPayload(view.Entries()), Preferences: &prefs})

	log.InfoContext(ctx, "stream connected")
	go c.writeLoop(log)
	c.readLoop()
	log.InfoContext(ctx, "stream disconnected")
}

func wishlistPayload(wl domain.Wishlist) *domain.Wishlist {
	if wl == nil {
		wl = domain.Wishlist{}
	}
	return &wl
}

type streamConn struct {
	conn *websocket.Conn
	send chan Frame

	closeOnce sync.Once
	done      chan struct{}
}

// push queues f without blocking the publisher. A client that cannot keep up
// is disconnected.
func (c *streamConn) push(f Frame) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- f:
	case <-c.done:
	default:
		c.close()
	}
}

func (c *streamConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop discards client messages and returns when the connection ends.
func (c *streamConn) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamConn) writeLoop(log *slog.Logger) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteJSON(f); err != nil {
				log.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
