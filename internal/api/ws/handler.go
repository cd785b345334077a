// Package ws serves the realtime endpoint. It authenticates the handshake,
// owns the per-connection reader and writer goroutines, and translates wire
// frames into calls on the realtime services.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

// Services groups the realtime operations a connection can drive.
type Services struct {
	Verifier  ports.TokenVerifier
	Lifecycle ports.Lifecycle
	Router    ports.MessageRouter
	Typing    ports.TypingRelay
	Receipts  ports.ReceiptPropagator
}

type Handler struct {
	svc       Services
	validator echo.Validator
	upgrader  websocket.Upgrader
	opts      Options
	log       zerolog.Logger

	// live tracks upgraded connections until their disconnect has finished.
	mu       sync.Mutex
	live     map[*Conn]struct{}
	draining bool
	wg       sync.WaitGroup
}

func NewHandler(svc Services, validator echo.Validator, opts Options, log zerolog.Logger) *Handler {
	opts = opts.withDefaults()
	return &Handler{
		svc:       svc,
		validator: validator,
		upgrader:  makeUpgrader(opts.AllowedOrigins),
		opts:      opts,
		log:       log,
		live:      make(map[*Conn]struct{}),
	}
}

// makeUpgrader accepts any origin when none are configured or "*" is listed.
// Requests without an Origin header come from non-browser clients.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[strings.TrimRight(o, "/")] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originSet[origin]
		},
	}
}

// Serve handles GET /ws.
//
// @Summary      Realtime connection
// @Description  Upgrades to a WebSocket carrying {"event","data"} JSON frames.
// @Tags         realtime
// @Param        token  query  string  false  "Access token (or Authorization: Bearer)"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) Serve(c echo.Context) error {
	req := c.Request()

	identity, err := h.svc.Verifier.VerifyToken(req.Context(), tokenFromRequest(req))
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			metrics.ConnectionAttemptsTotal.WithLabelValues("store_unavailable").Inc()
			h.log.Warn().Err(err).Msg("handshake rejected: store unavailable")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
		}
		metrics.ConnectionAttemptsTotal.WithLabelValues("auth_failed").Inc()
		h.log.Debug().Err(err).Str("remote", c.RealIP()).Msg("handshake rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	wsConn, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		metrics.ConnectionAttemptsTotal.WithLabelValues("upgrade_failed").Inc()
		h.log.Debug().Err(err).Str("username", identity).Msg("websocket upgrade failed")
		return nil
	}

	conn := newConn(wsConn, identity, h.opts, h.log)
	go conn.writePump()

	if !h.track(conn) {
		conn.log.Debug().Msg("rejected: server draining")
		_ = conn.Close()
		return nil
	}
	defer h.untrack(conn)

	// Store writes must outlive the request once the socket is hijacked.
	ctx := context.WithoutCancel(req.Context())

	if err := h.svc.Lifecycle.Connect(ctx, conn); err != nil {
		metrics.ConnectionAttemptsTotal.WithLabelValues("store_unavailable").Inc()
		conn.log.Warn().Err(err).Msg("connect failed")
		_ = conn.Close()
		return nil
	}
	metrics.ConnectionAttemptsTotal.WithLabelValues("accepted").Inc()
	conn.log.Info().Msg("connected")

	defer func() {
		h.svc.Lifecycle.Disconnect(ctx, conn)
		_ = conn.Close()
		conn.log.Info().Msg("disconnected")
	}()

	h.readLoop(ctx, conn)
	return nil
}

// Drain closes every live connection, refuses new ones, and waits until each
// connection has finished its disconnect or ctx expires.
func (h *Handler) Drain(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	n := len(h.live)
	for c := range h.live {
		_ = c.Close()
	}
	h.mu.Unlock()
	h.log.Info().Int("sessions", n).Msg("draining sessions")

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain sessions: %w", ctx.Err())
	}
}

func (h *Handler) track(conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.live[conn] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(conn *Conn) {
	h.mu.Lock()
	delete(h.live, conn)
	h.mu.Unlock()
	h.wg.Done()
}

// readLoop returns when the peer goes away, the pong deadline passes, or the
// connection is closed from our side.
func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(h.opts.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		msgType, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				conn.log.Debug().Err(err).Msg("read error")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		if msgType != websocket.TextMessage {
			metrics.InboundDroppedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		if !conn.limiter.Allow() {
			metrics.InboundDroppedTotal.WithLabelValues("rate_limited").Inc()
			conn.log.Debug().Msg("event rate limited")
			continue
		}

		h.dispatch(ctx, conn, raw)
	}
}

// tokenFromRequest reads ?token= first, then an Authorization bearer header.
// Browsers cannot set headers on the WebSocket handshake.
func tokenFromRequest(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(tok)
	}
	return ""
}
