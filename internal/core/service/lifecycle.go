package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/session"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

// lifecycleShards is the number of mutexes identity transitions are spread over.
const lifecycleShards = 64

// LifecycleManager admits authenticated connections into the registry and
// retires them on disconnect, keeping the durable online flag and peer
// presence in step.
type LifecycleManager struct {
	registry *session.Registry
	store    ports.PresenceStore
	presence *PresenceBroadcaster
	log      zerolog.Logger

	// shards serialize Connect and Disconnect for the same identity, so the
	// registry change, the durable flag and the broadcast land as one step.
	shards [lifecycleShards]sync.Mutex
}

func NewLifecycleManager(
	registry *session.Registry,
	store ports.PresenceStore,
	presence *PresenceBroadcaster,
	log zerolog.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		registry: registry,
		store:    store,
		presence: presence,
		log:      log,
	}
}

// Connect makes conn the live session for its identity. A connection it
// replaces is closed by the server. If the store cannot record the identity as
// online the registration is rolled back and conn is closed.
func (m *LifecycleManager) Connect(ctx context.Context, conn ports.Conn) error {
	identity := conn.Identity()

	mu := m.shardFor(identity)
	mu.Lock()
	defer mu.Unlock()

	// 1. Register; last connection wins.
	prev := m.registry.Register(identity, conn)
	if prev != nil {
		metrics.ConnectionsReplacedTotal.Inc()
		m.log.Info().
			Str("username", identity).
			Str("conn_id", conn.ID()).
			Str("replaced_conn_id", prev.ID()).
			Msg("closing replaced connection")
		_ = prev.Close()
	}

	// 2. Durable online flag.
	if err := m.store.SetOnline(ctx, identity, true); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("set_online").Inc()
		removed := m.registry.Unregister(identity, conn)
		_ = conn.Close()
		if removed && prev != nil {
			// Peers saw the replaced connection as online.
			m.presence.Broadcast(domain.PresenceEvent{Identity: identity, Online: false}, nil)
		}
		return fmt.Errorf("connect %s: %w: %w", identity, domain.ErrStoreUnavailable, err)
	}

	metrics.ConnectionsActive.Set(float64(m.registry.Count()))

	// 3. Tell everyone else.
	m.presence.Broadcast(domain.PresenceEvent{Identity: identity, Online: true}, conn)

	m.log.Info().Str("username", identity).Str("conn_id", conn.ID()).Msg("session live")
	return nil
}

// Disconnect retires conn. It is a no-op when conn is no longer the registered
// session for its identity, which covers repeated calls and connections that
// were replaced by a newer one.
func (m *LifecycleManager) Disconnect(ctx context.Context, conn ports.Conn) {
	identity := conn.Identity()

	mu := m.shardFor(identity)
	mu.Lock()
	defer mu.Unlock()

	if !m.registry.Unregister(identity, conn) {
		m.log.Debug().Str("username", identity).Str("conn_id", conn.ID()).Msg("connection already retired or superseded")
		return
	}
	metrics.ConnectionsActive.Set(float64(m.registry.Count()))

	if err := m.store.SetOnline(ctx, identity, false); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("set_online").Inc()
		m.log.Error().Err(err).Str("username", identity).Msg("failed to persist offline flag")
	}

	m.presence.Broadcast(domain.PresenceEvent{Identity: identity, Online: false}, conn)

	m.log.Info().Str("username", identity).Str("conn_id", conn.ID()).Msg("session closed")
}

// shardFor maps an identity deterministically to one of the transition mutexes.
func (m *LifecycleManager) shardFor(identity string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return &m.shards[h.Sum32()%lifecycleShards]
}
