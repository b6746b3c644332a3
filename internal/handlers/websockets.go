package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"meter_reading/internal/service"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// Envelope message types.
const (
	wsTypeStatus = "status"
	wsTypeError  = "error"
	wsTypeDone   = "done"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// checkOrigin allows any origin when no allow-list is configured. Clients
// without an Origin header (devices, native apps) are not browsers and pass.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := h.allowedOrigins[strings.ToLower(strings.TrimRight(origin, "/"))]
	return ok
}

// wsToken reads the bearer token from the Authorization header or, for
// browser clients that cannot set headers, from ?token=.
func wsToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// @Summary      Installation status stream
// @Description  WebSocket. Sends {"type":"status","data":SessionView} every interval until the session is terminal and idle, then {"type":"done"}.
// @Tags         installations
// @Param        id           path   int     true   "session id"
// @Param        token        query  string  false  "bearer token when no Authorization header can be sent"
// @Param        interval     query  string  false  "push interval, e.g. 2s (max 10s)"
// @Param        interval_ms  query  int     false  "push interval in ms (max 10000)"
// @Router       /ws/installations/{id} [get]
func (h *Handler) wsInstallationStatus(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if _, err := h.services.ParseToken(wsToken(c)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	interval := h.parseInterval(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	// Send initial status immediately.
	finished, err := h.sendStatus(ctx, conn, id)
	if err != nil || finished {
		if err != nil && h.log != nil {
			h.log.Infow("ws_write_failed_initial", "session_id", id, "err", err)
		}
		return
	}

	// Writer/select loop.
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			finished, err := h.sendStatus(ctx, conn, id)
			if err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "session_id", id, "err", err)
				}
				return
			}
			if finished {
				return
			}
		}
	}
}

// Helper: parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// Helper: sendStatus writes the session view. It reports finished=true once
// the stream should end: the session is terminal with no run in flight, or it
// does not exist.
func (h *Handler) sendStatus(ctx context.Context, conn *websocket.Conn, id int64) (bool, error) {
	view, err := h.services.Installations.Status(ctx, id)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return true, conn.WriteJSON(wsEnvelope{Type: wsTypeError, Error: err.Error()})
		}
		if h.log != nil {
			h.log.Errorw("ws_get_status_failed", "session_id", id, "err", err)
		}
		_ = conn.WriteJSON(wsEnvelope{Type: wsTypeError, Error: errInternal})
		return true, err
	}
	if err := conn.WriteJSON(wsEnvelope{Type: wsTypeStatus, Data: view}); err != nil {
		return false, err
	}
	if view.Status.IsTerminal() && !view.PipelineRunning {
		return true, conn.WriteJSON(wsEnvelope{Type: wsTypeDone})
	}
	return false, nil
}
