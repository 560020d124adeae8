package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/delicado-shop/delicado-api/internal/orders"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	paymentstripe "github.com/delicado-shop/delicado-api/pkg/stripe"
)

type fakeOrders struct {
	succeeded []orders.PaymentSucceeded
	failed    []orders.PaymentFailure
	applied   bool
	err       error
}

func (f *fakeOrders) HandlePaymentSucceeded(_ context.Context, event orders.PaymentSucceeded) (*orders.FinalizeResult, error) {
	f.succeeded = append(f.succeeded, event)
	if f.err != nil {
		return nil, f.err
	}
	return &orders.FinalizeResult{Applied: f.applied}, nil
}

func (f *fakeOrders) HandlePaymentFailed(_ context.Context, event orders.PaymentFailure) error {
	f.failed = append(f.failed, event)
	return f.err
}

type recordedMetric struct{ eventType, outcome string }

type fakeMetrics struct{ events []recordedMetric }

func (f *fakeMetrics) WebhookEvent(eventType, outcome string) {
	f.events = append(f.events, recordedMetric{eventType, outcome})
}

func intentEvent(t *testing.T, eventType stripe.EventType, pi stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(pi)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{ID: "evt_" + uuid.NewString(), Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

// newTestService leaves Metrics unset when metrics is nil; a typed nil
// *fakeMetrics would pass the service's nil check and panic on use.
func newTestService(t *testing.T, handler *fakeOrders, metrics *fakeMetrics) *Service {
	t.Helper()
	params := ServiceParams{Orders: handler}
	if metrics != nil {
		params.Metrics = metrics
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func TestHandleEvent_SucceededFinalizesOrder(t *testing.T) {
	orderID := uuid.New()
	handler := &fakeOrders{applied: true}
	metrics := &fakeMetrics{}
	svc := newTestService(t, handler, metrics)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{
		ID:             "pi_123",
		AmountReceived: 4250,
		Currency:       stripe.CurrencyUSD,
		Metadata:       map[string]string{paymentstripe.MetadataOrderID: orderID.String()},
	})
	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if len(handler.succeeded) != 1 {
		t.Fatalf("expected one finalize call, got %d", len(handler.succeeded))
	}
	got := handler.succeeded[0]
	if got.OrderID == nil || *got.OrderID != orderID || got.PaymentIntentID != "pi_123" || got.AmountReceived != 4250 || got.Currency != "usd" {
		t.Fatalf("unexpected finalize input %+v", got)
	}
	if len(metrics.events) != 1 || metrics.events[0] != (recordedMetric{"payment_intent.succeeded", "applied"}) {
		t.Fatalf("unexpected metrics %+v", metrics.events)
	}
}

func TestHandleEvent_AlreadyFinalizedIsNoop(t *testing.T) {
	svc := newTestService(t, &fakeOrders{applied: false}, nil)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{ID: "pi_1"})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeNoop {
		t.Fatalf("expected noop, got %s %v", outcome, err)
	}
}

func TestHandleEvent_WithoutMetrics(t *testing.T) {
	svc, err := NewService(ServiceParams{Orders: &fakeOrders{applied: true}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{ID: "pi_1"})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s %v", outcome, err)
	}
}

func TestHandleEvent_UnknownOrderIsAcknowledged(t *testing.T) {
	handler := &fakeOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, handler, nil)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{
		ID:       "pi_1",
		Metadata: map[string]string{paymentstripe.MetadataOrderID: "not-a-uuid"},
	})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("expected ack, got %v", err)
	}
	if outcome != OutcomeUnmatched {
		t.Fatalf("expected unmatched, got %s", outcome)
	}
	if handler.succeeded[0].OrderID != nil {
		t.Fatalf("malformed metadata should not produce an order id")
	}
}

func TestHandleEvent_ConflictIsAcknowledged(t *testing.T) {
	handler := &fakeOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "amount mismatch")}
	svc := newTestService(t, handler, nil)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{ID: "pi_1"})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeRejected {
		t.Fatalf("expected rejected ack, got %s %v", outcome, err)
	}
}

func TestHandleEvent_DependencyFailureIsReturned(t *testing.T) {
	metrics := &fakeMetrics{}
	handler := &fakeOrders{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load order")}
	svc := newTestService(t, handler, metrics)
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{ID: "pi_1"})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err == nil || outcome != OutcomeError {
		t.Fatalf("expected error outcome, got %s %v", outcome, err)
	}
	if len(metrics.events) != 1 || metrics.events[0].outcome != "error" {
		t.Fatalf("unexpected metrics %+v", metrics.events)
	}
}

func TestHandleEvent_PaymentFailedRecordsFailure(t *testing.T) {
	orderID := uuid.New()
	handler := &fakeOrders{}
	svc := newTestService(t, handler, nil)
	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, stripe.PaymentIntent{
		ID:               "pi_9",
		Metadata:         map[string]string{paymentstripe.MetadataOrderID: orderID.String()},
		LastPaymentError: &stripe.Error{Code: stripe.ErrorCodeCardDeclined, Msg: "Your card was declined."},
	})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeRecorded {
		t.Fatalf("expected recorded, got %s %v", outcome, err)
	}
	got := handler.failed[0]
	if got.FailureCode != "card_declined" || got.FailureMessage != "Your card was declined." || *got.OrderID != orderID {
		t.Fatalf("unexpected failure input %+v", got)
	}
}

func TestHandleEvent_IgnoresOtherTypes(t *testing.T) {
	handler := &fakeOrders{}
	svc := newTestService(t, handler, nil)
	event := &stripe.Event{ID: "evt_1", Type: stripe.EventTypeCustomerCreated, Data: &stripe.EventData{Raw: []byte(`{}`)}}

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s %v", outcome, err)
	}
	if len(handler.succeeded)+len(handler.failed) != 0 {
		t.Fatalf("handler should not be called")
	}
}

func TestHandleEvent_RejectsMissingData(t *testing.T) {
	svc := newTestService(t, &fakeOrders{}, nil)
	if _, err := svc.HandleEvent(context.Background(), &stripe.Event{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type memoryStore struct{ keys map[string]string }

func (m *memoryStore) Get(_ context.Context, key string) (string, error) { return m.keys[key], nil }

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func TestEventGuard(t *testing.T) {
	guard, err := NewEventGuard(&memoryStore{keys: map[string]string{}}, time.Hour, "")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.Claim(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first claim should be new: %v %v", seen, err)
	}
	seen, _ = guard.Claim(ctx, "evt_1")
	if !seen {
		t.Fatalf("second claim should report duplicate")
	}
	if err := guard.Release(ctx, "evt_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	seen, _ = guard.Claim(ctx, "evt_1")
	if seen {
		t.Fatalf("released id should be claimable")
	}
	if _, err := guard.Claim(ctx, ""); err == nil {
		t.Fatalf("empty id should fail")
	}
	if _, err := NewEventGuard(nil, time.Hour, ""); err == nil {
		t.Fatalf("nil store should fail")
	}
}
