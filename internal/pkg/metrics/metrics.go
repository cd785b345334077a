// Package metrics defines and registers all custom Prometheus metrics for the
// chat server. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// ── Connection metrics ────────────────────────────────────────────────────────

// ConnectionsActive tracks the number of live sessions in the registry.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Current number of live realtime sessions.",
	},
)

// ConnectionAttemptsTotal counts handshake outcomes.
// Label:
//   - result: "accepted", "auth_failed", "store_unavailable", "upgrade_failed"
var ConnectionAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_attempts_total",
		Help:      "Total number of realtime connection attempts, by result.",
	},
	[]string{"result"},
)

// ConnectionsReplacedTotal counts sessions force-closed by a newer connection
// of the same identity.
var ConnectionsReplacedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_replaced_total",
		Help:      "Total number of sessions closed because the identity reconnected.",
	},
)

// PresenceBroadcastsTotal counts user:status fan-outs.
// Label:
//   - online: "true" or "false"
var PresenceBroadcastsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "presence_broadcasts_total",
		Help:      "Total number of presence transitions broadcast to live sessions.",
	},
	[]string{"online"},
)

// ── Message metrics ───────────────────────────────────────────────────────────

// MessagesSentTotal counts persisted messages.
// Label:
//   - delivered: "true" when the recipient was live at send time
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of messages persisted, by delivery state.",
	},
	[]string{"delivered"},
)

// EventsDroppedTotal counts outbound events that never reached a connection.
// Label:
//   - event: wire event name (e.g. "message:new")
var EventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of outbound events dropped because the connection was closed or saturated.",
	},
	[]string{"event"},
)

// TypingSignalsTotal counts typing relays.
// Label:
//   - result: "relayed" or "dropped"
var TypingSignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "typing_signals_total",
		Help:      "Total number of typing signals, by relay result.",
	},
	[]string{"result"},
)

// ReadReceiptsTotal counts processed message:read requests.
// Label:
//   - notified: "true" when the original sender was live and notified
var ReadReceiptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "read_receipts_total",
		Help:      "Total number of read receipts applied, by sender notification.",
	},
	[]string{"notified"},
)

// ── Inbound / store metrics ───────────────────────────────────────────────────

// InboundDroppedTotal counts client events discarded before reaching a service.
// Label:
//   - reason: "malformed", "unknown_event", "rate_limited"
var InboundDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbound_dropped_total",
		Help:      "Total number of client events dropped, by reason.",
	},
	[]string{"reason"},
)

// StoreErrorsTotal counts failed store calls made by the realtime core.
// Label:
//   - op: "append", "mark_read", "set_online"
var StoreErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_errors_total",
		Help:      "Total number of persistent store failures seen by the realtime core.",
	},
	[]string{"op"},
)

// EventHandlingDuration measures how long one inbound client event takes to handle.
// Label:
//   - event: the inbound event name
var EventHandlingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_handling_duration_seconds",
		Help:      "Duration of inbound event handling, from decode to last outbound enqueue.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"event"},
)
