package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/delicado-shop/delicado-api/internal/analytics/types"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox/payloads"
)

var (
	ErrUnsupportedEventType = errors.New("unsupported analytics event type")
	// ErrInvalidPayload marks events that will never decode; redelivery cannot help.
	ErrInvalidPayload = errors.New("invalid analytics payload")
)

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches analytics envelopes to the configured handler per event type.
type Router struct {
	handlers map[enums.OutboxEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	entries := map[enums.OutboxEventType]handlerEntry{
		enums.EventOrderCreated: {
			factory: func() any { return &payloads.OrderCreatedEvent{} },
			handler: newOrderEventHandler(writer, logg, buildOrderCreatedRow),
		},
		enums.EventOrderCompleted: {
			factory: func() any { return &payloads.OrderCompletedEvent{} },
			handler: newOrderEventHandler(writer, logg, buildOrderCompletedRow),
		},
		enums.EventOrderStatusChanged: {
			factory: func() any { return &payloads.OrderStatusChangedEvent{} },
			handler: newOrderEventHandler(writer, logg, buildStatusChangedRow),
		},
		enums.EventPaymentFailed: {
			factory: func() any { return &payloads.PaymentFailedEvent{} },
			handler: newOrderEventHandler(writer, logg, buildPaymentFailedRow),
		},
		// personalization events share the topic but have no warehouse table yet
		enums.EventPersonalizationSaved: {
			factory: func() any { return &payloads.PersonalizationSavedEvent{} },
			handler: skipHandler{logg: logg},
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Router{
		handlers: entries,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	payload := entry.factory()
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrInvalidPayload, envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", ErrInvalidPayload, envelope.EventType, err)
	}

	return entry.handler.Handle(ctx, envelope, payload)
}

type skipHandler struct {
	logg *logger.Logger
}

func (h skipHandler) Handle(ctx context.Context, envelope types.Envelope, _ any) error {
	h.logg.Debug(h.logg.WithField(ctx, "event_type", envelope.EventType), "analytics event skipped")
	return nil
}
