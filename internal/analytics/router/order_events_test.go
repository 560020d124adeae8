package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/internal/analytics/types"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/outbox/payloads"
)

func envelopeFor(t *testing.T, eventType enums.OutboxEventType, payload any) types.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return types.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:       data,
	}
}

func TestOrderCreatedRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	orderID, userID := uuid.New(), uuid.New()

	env := envelopeFor(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:       orderID,
		UserID:        &userID,
		PaymentMethod: enums.PaymentMethodCard,
		Status:        enums.OrderStatusPending,
		TotalAmount:   decimal.RequireFromString("42.50"),
		Currency:      "usd",
		Items: []payloads.OrderLine{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("22.50")},
		},
	})
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.inserted) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.inserted))
	}
	row := writer.inserted[0]
	if row.EventID != env.EventID || row.EventType != "order.created" || row.OrderID != orderID.String() {
		t.Fatalf("unexpected identity columns %+v", row)
	}
	if row.TotalAmountCents == nil || *row.TotalAmountCents != 4250 {
		t.Fatalf("expected 4250 cents, got %v", row.TotalAmountCents)
	}
	if row.ItemCount == nil || *row.ItemCount != 3 {
		t.Fatalf("expected 3 items, got %v", row.ItemCount)
	}
	if row.UserID == nil || *row.UserID != userID.String() {
		t.Fatalf("unexpected user id %v", row.UserID)
	}
	if *row.Status != "pending" || *row.PaymentMethod != "card" {
		t.Fatalf("unexpected status columns")
	}
	if !row.Items.Valid || !row.Payload.Valid {
		t.Fatalf("expected json columns to be populated")
	}
}

func TestOrderCompletedRowUsesFinalizedAt(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	finalized := time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC)

	env := envelopeFor(t, enums.EventOrderCompleted, payloads.OrderCompletedEvent{
		OrderID:     uuid.New(),
		TotalAmount: decimal.RequireFromString("5.00"),
		Currency:    "usd",
		FinalizedAt: finalized,
		Source:      "webhook",
	})
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if !row.OccurredAt.Equal(finalized) {
		t.Fatalf("expected finalized timestamp, got %v", row.OccurredAt)
	}
	if row.UserID != nil {
		t.Fatalf("guest order should have no user id")
	}
	if *row.Source != "webhook" || *row.Status != "completed" {
		t.Fatalf("unexpected columns %+v", row)
	}
}

func TestStatusChangedRowKeepsAdminActor(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	env := envelopeFor(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
		OrderID:        uuid.New(),
		PreviousStatus: enums.OrderStatusCompleted,
		Status:         enums.OrderStatusRefunded,
	})
	env.Actor = &outbox.ActorRef{UserID: uuid.New(), IsAdmin: true}

	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if !row.ActorIsAdmin || *row.PreviousStatus != "completed" || *row.Status != "refunded" {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestPaymentFailedRow(t *testing.T) {
	writer := &fakeWriter{}
	router := newTestRouter(t, writer, nil)
	env := envelopeFor(t, enums.EventPaymentFailed, payloads.PaymentFailedEvent{
		OrderID:         uuid.New(),
		PaymentIntentID: "pi_1",
		FailureCode:     "card_declined",
	})
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := writer.inserted[0].FailureCode; got == nil || *got != "card_declined" {
		t.Fatalf("unexpected failure code %v", got)
	}
}

func TestOrderEventRequiresOrderID(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{}, nil)
	env := envelopeFor(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{Status: enums.OrderStatusCancelled})
	err := router.Handle(context.Background(), env)
	if err == nil || !strings.Contains(err.Error(), "order id missing") {
		t.Fatalf("expected missing order id error, got %v", err)
	}
}

func TestOrderEventWriterFailure(t *testing.T) {
	router := newTestRouter(t, &fakeWriter{err: errors.New("insert failed")}, nil)
	env := envelopeFor(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{OrderID: uuid.New()})
	if err := router.Handle(context.Background(), env); err == nil {
		t.Fatal("expected writer error to propagate")
	}
}
