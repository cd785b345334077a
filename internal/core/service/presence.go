package service

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/session"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

// PresenceBroadcaster fans user:status events out to live sessions.
type PresenceBroadcaster struct {
	registry *session.Registry
	log      zerolog.Logger
}

func NewPresenceBroadcaster(registry *session.Registry, log zerolog.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry, log: log}
}

// Broadcast notifies every live connection except the given one. A failed
// send to one connection is logged and does not stop the fan-out.
func (b *PresenceBroadcaster) Broadcast(ev domain.PresenceEvent, except ports.Conn) {
	out := domain.Event{
		Name:    domain.EventUserStatus,
		Payload: domain.UserStatusPayload{Username: ev.Identity, Online: ev.Online},
	}

	b.registry.Range(func(identity string, conn ports.Conn) bool {
		if conn == except {
			return true
		}
		if err := conn.Send(out); err != nil {
			metrics.EventsDroppedTotal.WithLabelValues(out.Name).Inc()
			b.log.Debug().Err(err).
				Str("to", identity).
				Str("username", ev.Identity).
				Msg("presence event dropped")
		}
		return true
	})

	metrics.PresenceBroadcastsTotal.WithLabelValues(strconv.FormatBool(ev.Online)).Inc()
}
