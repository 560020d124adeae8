package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/delicado-shop/delicado-api/internal/analytics/router"
	"github.com/delicado-shop/delicado-api/internal/analytics/types"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
)

func TestDecodeEnvelope(t *testing.T) {
	actor := &outbox.ActorRef{UserID: uuid.New()}
	payload := outbox.PayloadEnvelope{
		EventID:    "evt-1",
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:      actor,
		Data:       json.RawMessage(`{"order_id":"ord-1"}`),
	}
	msg := buildMessage(t, payload, map[string]string{
		"event_type":     "order.created",
		"aggregate_type": "order",
		"aggregate_id":   " ord-1 ",
	})

	env, err := decodeEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, enums.EventOrderCreated, env.EventType)
	assert.Equal(t, enums.AggregateOrder, env.AggregateType)
	assert.Equal(t, "ord-1", env.AggregateID)
	assert.Equal(t, "evt-1", env.EventID)
	assert.True(t, env.OccurredAt.Equal(payload.OccurredAt))
	require.NotNil(t, env.Actor)
	assert.Equal(t, actor.UserID, env.Actor.UserID)
	assert.JSONEq(t, `{"order_id":"ord-1"}`, string(env.Payload))
}

func TestDecodeEnvelopeFallsBackToAttributes(t *testing.T) {
	created := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := buildMessage(t, outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       "evt-attr",
		"event_type":     "payment.failed",
		"aggregate_type": "order",
		"aggregate_id":   "ord-1",
		"created_at":     created.Format(time.RFC3339Nano),
	})

	env, err := decodeEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, "evt-attr", env.EventID)
	assert.True(t, env.OccurredAt.Equal(created))
}

func TestDecodeEnvelopeRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown event type": {"event_type": "order_created", "aggregate_type": "order", "aggregate_id": "ord-1"},
		"unknown aggregate":  {"event_type": "order.created", "aggregate_type": "store", "aggregate_id": "ord-1"},
		"missing aggregate":  {"event_type": "order.created", "aggregate_type": "order"},
	}
	for name, attrs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEnvelope(buildMessage(t, outbox.PayloadEnvelope{EventID: "evt-1"}, attrs))
			assert.Error(t, err)
		})
	}

	_, err := decodeEnvelope(buildMessage(t, outbox.PayloadEnvelope{}, map[string]string{
		"event_type": "order.created", "aggregate_type": "order", "aggregate_id": "ord-1",
	}))
	assert.EqualError(t, err, "event_id missing")
}

func TestProcessHandlesEvent(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestService(handler, manager)

	assert.Equal(t, ack, svc.process(context.Background(), orderCompletedMessage(t)))
	assert.True(t, handler.called)
	assert.Equal(t, enums.EventOrderCompleted, handler.envelope.EventType)
	assert.Len(t, manager.checked, 1)
	assert.Empty(t, manager.released)
}

func TestProcessSkipsDuplicate(t *testing.T) {
	handler := &stubHandler{}
	svc := newTestService(handler, &stubManager{seen: true})

	assert.Equal(t, ack, svc.process(context.Background(), orderCompletedMessage(t)))
	assert.False(t, handler.called)
}

func TestProcessIdempotencyFailureNacks(t *testing.T) {
	handler := &stubHandler{}
	svc := newTestService(handler, &stubManager{checkErr: errors.New("redis down")})

	assert.Equal(t, nack, svc.process(context.Background(), orderCompletedMessage(t)))
	assert.False(t, handler.called)
}

func TestProcessTransientHandlerErrorNacks(t *testing.T) {
	manager := &stubManager{}
	svc := newTestService(&stubHandler{err: &googleapi.Error{Code: http.StatusServiceUnavailable}}, manager)

	assert.Equal(t, nack, svc.process(context.Background(), orderCompletedMessage(t)))
	assert.Len(t, manager.released, 1)
}

func TestProcessPermanentHandlerErrorAcks(t *testing.T) {
	manager := &stubManager{}
	svc := newTestService(&stubHandler{err: &googleapi.Error{Code: http.StatusForbidden}}, manager)

	assert.Equal(t, ack, svc.process(context.Background(), orderCompletedMessage(t)))
	assert.Len(t, manager.released, 1)
}

func TestProcessInvalidEnvelopeAcks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestService(handler, manager)

	assert.Equal(t, ack, svc.process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")}))
	assert.False(t, handler.called)
	assert.Empty(t, manager.checked)
}

func TestProcessSkippedEventsKeepMark(t *testing.T) {
	for _, sentinel := range []error{router.ErrUnsupportedEventType, router.ErrInvalidPayload} {
		manager := &stubManager{}
		svc := newTestService(&stubHandler{err: fmt.Errorf("%w: detail", sentinel)}, manager)

		assert.Equal(t, ack, svc.process(context.Background(), orderCompletedMessage(t)), sentinel.Error())
		assert.Empty(t, manager.released, sentinel.Error())
	}
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, &stubHandler{}, &stubManager{}, logger.New(logger.Options{Output: io.Discard}))
	assert.EqualError(t, err, "analytics subscription is required")
}

func orderCompletedMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	return buildMessage(t, outbox.PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	}, map[string]string{
		"event_type":     "order.completed",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
	})
}

func buildMessage(t *testing.T, payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &gcppubsub.Message{ID: "msg-1", Data: data, Attributes: attrs}
}

func newTestService(handler Handler, manager *stubManager) *Service {
	return &Service{
		handler: handler,
		manager: manager,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
	}
}

type stubHandler struct {
	called   bool
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Handle(_ context.Context, envelope types.Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubManager struct {
	seen     bool
	checkErr error
	checked  []string
	released []string
}

func (s *stubManager) CheckAndMarkKey(_ context.Context, _ string, id string) (bool, error) {
	s.checked = append(s.checked, id)
	return s.seen, s.checkErr
}

func (s *stubManager) Release(_ context.Context, _ string, id string) error {
	s.released = append(s.released, id)
	return nil
}
