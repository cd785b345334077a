package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
)

// Conn is one live WebSocket session. Outbound frames go through a bounded
// queue drained by a single writer goroutine, so Send never blocks and frames
// reach the peer in the order they were queued.
type Conn struct {
	id       string
	identity string
	ws       *websocket.Conn
	opts     Options
	log      zerolog.Logger
	limiter  *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ ports.Conn = (*Conn)(nil)

func newConn(ws *websocket.Conn, identity string, opts Options, log zerolog.Logger) *Conn {
	id := uuid.NewString()

	limit := rate.Inf
	if opts.EventsPerSecond > 0 {
		limit = rate.Limit(opts.EventsPerSecond)
	}

	return &Conn{
		id:       id,
		identity: identity,
		ws:       ws,
		opts:     opts,
		log:      log.With().Str("conn_id", id).Str("username", identity).Logger(),
		limiter:  rate.NewLimiter(limit, opts.EventBurst),
		send:     make(chan []byte, opts.SendQueue),
		done:     make(chan struct{}),
	}
}

func (c *Conn) ID() string       { return c.id }
func (c *Conn) Identity() string { return c.identity }

// Done is closed once the connection has been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send encodes ev and queues it. It fails with ErrConnClosed after Close and
// with ErrSendQueueFull when the peer is not keeping up.
func (c *Conn) Send(ev domain.Event) error {
	select {
	case <-c.done:
		return domain.ErrConnClosed
	default:
	}

	frame, err := json.Marshal(outbound{Event: ev.Name, Data: ev.Payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return domain.ErrConnClosed
	case c.send <- frame:
		return nil
	default:
		return domain.ErrSendQueueFull
	}
}

// Close stops the writer, which sends a close frame and releases the socket.
// Safe to call more than once and from any goroutine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// writePump owns every write on the socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				_ = c.Close()
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				_ = c.Close()
				return
			}

		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait))
			return
		}
	}
}
