package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

var errUnknownEvent = errors.New("unknown event")

// dispatch decodes one frame and hands it to the matching service. Failures
// never end the connection.
func (h *Handler) dispatch(ctx context.Context, conn *Conn, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		metrics.InboundDroppedTotal.WithLabelValues("malformed").Inc()
		conn.log.Debug().Err(err).Msg("malformed frame dropped")
		return
	}

	start := time.Now()
	err := h.route(ctx, conn, in)
	if !errors.Is(err, errUnknownEvent) {
		metrics.EventHandlingDuration.WithLabelValues(in.Event).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.handleError(conn, in.Event, err)
	}
}

func (h *Handler) route(ctx context.Context, conn *Conn, in inbound) error {
	switch in.Event {
	case domain.EventMessageSend:
		var req sendMessageRequest
		if err := h.decode(in.Data, &req); err != nil {
			return err
		}
		_, err := h.svc.Router.Send(ctx, conn, ports.SendInput{To: req.To, Text: req.Text, ClientID: req.ClientID})
		return err

	case domain.EventTypingStart, domain.EventTypingStop:
		var req typingRequest
		if err := h.decode(in.Data, &req); err != nil {
			return err
		}
		kind := domain.TypingStart
		if in.Event == domain.EventTypingStop {
			kind = domain.TypingStop
		}
		return h.svc.Typing.Relay(ctx, conn, req.To, kind)

	case domain.EventMessageRead:
		var req readRequest
		if err := h.decode(in.Data, &req); err != nil {
			return err
		}
		return h.svc.Receipts.MarkRead(ctx, conn, ports.ReadInput{From: req.From, IDs: req.IDs})

	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, in.Event)
	}
}

func (h *Handler) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", domain.ErrMalformedPayload)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
	}
	if h.validator != nil {
		if err := h.validator.Validate(dst); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
		}
	}
	return nil
}

func (h *Handler) handleError(conn *Conn, event string, err error) {
	switch {
	case errors.Is(err, errUnknownEvent):
		metrics.InboundDroppedTotal.WithLabelValues("unknown_event").Inc()
		conn.log.Debug().Str("event", event).Msg("unknown event dropped")

	case errors.Is(err, domain.ErrMalformedPayload):
		metrics.InboundDroppedTotal.WithLabelValues("malformed").Inc()
		conn.log.Debug().Err(err).Str("event", event).Msg("malformed payload dropped")

	case errors.Is(err, domain.ErrStoreUnavailable):
		conn.log.Warn().Err(err).Str("event", event).Msg("store unavailable")
		notice := domain.Event{
			Name:    domain.EventError,
			Payload: domain.ErrorPayload{Event: event, Error: "store unavailable"},
		}
		if sendErr := conn.Send(notice); sendErr != nil {
			metrics.EventsDroppedTotal.WithLabelValues(notice.Name).Inc()
		}

	default:
		conn.log.Error().Err(err).Str("event", event).Msg("event handling failed")
	}
}
