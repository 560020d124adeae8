package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/delicado-shop/delicado-api/internal/analytics/router"
	"github.com/delicado-shop/delicado-api/internal/analytics/types"
	"github.com/delicado-shop/delicado-api/pkg/bigquery"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
)

const analyticsConsumerName = "analytics"

type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyChecker interface {
	CheckAndMarkKey(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type disposition int

const (
	ack disposition = iota
	nack
)

// Service consumes order events from the analytics subscription. Each event
// id is marked in Redis before the handler runs so redeliveries write once;
// the mark is released when the handler fails.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case manager == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		manager:      manager,
		logg:         logg,
	}, nil
}

// Run blocks receiving messages until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) disposition {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := decodeEnvelope(msg)
	if err != nil {
		// a malformed message never becomes valid on redelivery
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.envelope.invalid")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     envelope.EventID,
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
		"occurred_at":  envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	seen, err := s.manager.CheckAndMarkKey(ctx, analyticsConsumerName, envelope.EventID)
	if err != nil {
		s.logg.Error(ctx, "analytics.idempotency.failed", err)
		return nack
	}
	if seen {
		s.logg.Info(ctx, "analytics.event.duplicate")
		return ack
	}

	err = s.handler.Handle(ctx, envelope)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics.event.handled")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType), errors.Is(err, router.ErrInvalidPayload):
		s.logg.Warn(ctx, "analytics.event.skipped: "+err.Error())
		return ack
	}

	if releaseErr := s.manager.Release(ctx, analyticsConsumerName, envelope.EventID); releaseErr != nil {
		s.logg.Error(ctx, "analytics.idempotency.release_failed", releaseErr)
	}
	if !bigquery.IsRetryable(err) {
		s.logg.Error(ctx, "analytics.event.dropped", err)
		return ack
	}
	s.logg.Error(ctx, "analytics.event.failed", err)
	return nack
}

// decodeEnvelope rebuilds the outbox event from the message body and the
// attributes the publisher sets. Body values win; attributes fill gaps.
func decodeEnvelope(msg *gcppubsub.Message) (types.Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return types.Envelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return types.Envelope{}, errors.New("aggregate_id missing")
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attr("event_id")
	}
	if eventID == "" {
		return types.Envelope{}, errors.New("event_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	return types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Payload:       stored.Data,
	}, nil
}
