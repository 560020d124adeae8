package router

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/internal/analytics/types"
	analyticswriter "github.com/delicado-shop/delicado-api/internal/analytics/writer"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox/payloads"
)

type rowBuilder func(envelope types.Envelope, payload any) (types.OrderEventRow, error)

type orderEventHandler struct {
	writer Writer
	logg   *logger.Logger
	build  rowBuilder
}

func newOrderEventHandler(writer Writer, logg *logger.Logger, build rowBuilder) Handler {
	return &orderEventHandler{writer: writer, logg: logg, build: build}
}

func (h *orderEventHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
	})

	row, err := h.build(envelope, payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order event row", err)
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := h.writer.InsertOrderEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order event row", err)
		return err
	}

	h.logg.Info(logCtx, "order event row inserted")
	return nil
}

func buildOrderCreatedRow(envelope types.Envelope, payload any) (types.OrderEventRow, error) {
	event, ok := payload.(*payloads.OrderCreatedEvent)
	if !ok {
		return types.OrderEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row, err := baseRow(envelope, event.OrderID, event)
	if err != nil {
		return row, err
	}
	if row.Items, err = analyticswriter.EncodeJSON(event.Items); err != nil {
		return row, fmt.Errorf("encode items json: %w", err)
	}
	row.UserID = uuidPtr(event.UserID)
	row.Status = stringPtr(string(event.Status))
	row.PaymentMethod = stringPtr(string(event.PaymentMethod))
	row.Currency = stringPtr(event.Currency)
	row.TotalAmountCents = cents(event.TotalAmount)
	row.ItemCount = itemCount(event.Items)
	return row, nil
}

func buildOrderCompletedRow(envelope types.Envelope, payload any) (types.OrderEventRow, error) {
	event, ok := payload.(*payloads.OrderCompletedEvent)
	if !ok {
		return types.OrderEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row, err := baseRow(envelope, event.OrderID, event)
	if err != nil {
		return row, err
	}
	if row.Items, err = analyticswriter.EncodeJSON(event.Items); err != nil {
		return row, fmt.Errorf("encode items json: %w", err)
	}
	if !event.FinalizedAt.IsZero() {
		row.OccurredAt = event.FinalizedAt.UTC()
	}
	row.UserID = uuidPtr(event.UserID)
	row.Status = stringPtr("completed")
	row.Source = stringPtr(event.Source)
	row.Currency = stringPtr(event.Currency)
	row.TotalAmountCents = cents(event.TotalAmount)
	row.ItemCount = itemCount(event.Items)
	return row, nil
}

func buildStatusChangedRow(envelope types.Envelope, payload any) (types.OrderEventRow, error) {
	event, ok := payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		return types.OrderEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row, err := baseRow(envelope, event.OrderID, event)
	if err != nil {
		return row, err
	}
	row.Status = stringPtr(string(event.Status))
	row.PreviousStatus = stringPtr(string(event.PreviousStatus))
	return row, nil
}

func buildPaymentFailedRow(envelope types.Envelope, payload any) (types.OrderEventRow, error) {
	event, ok := payload.(*payloads.PaymentFailedEvent)
	if !ok {
		return types.OrderEventRow{}, fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row, err := baseRow(envelope, event.OrderID, event)
	if err != nil {
		return row, err
	}
	row.Status = stringPtr("pending")
	row.PaymentMethod = stringPtr("card")
	row.FailureCode = stringPtr(event.FailureCode)
	return row, nil
}

func baseRow(envelope types.Envelope, orderID uuid.UUID, event any) (types.OrderEventRow, error) {
	if orderID == uuid.Nil {
		return types.OrderEventRow{}, fmt.Errorf("order id missing for %s", envelope.EventType)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}
	row := types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		OrderID:    orderID.String(),
		Payload:    payloadJSON,
	}
	if envelope.Actor != nil {
		row.ActorIsAdmin = envelope.Actor.IsAdmin
	}
	return row, nil
}

func cents(amount decimal.Decimal) *int64 {
	v := amount.Shift(2).Round(0).IntPart()
	return &v
}

func itemCount(lines []payloads.OrderLine) *int64 {
	var n int64
	for _, line := range lines {
		n += int64(line.Quantity)
	}
	return &n
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func uuidPtr(id *uuid.UUID) *string {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}
