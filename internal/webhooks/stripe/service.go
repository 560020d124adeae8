// Package stripewebhook turns verified Stripe events into order transitions.
package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/delicado-shop/delicado-api/internal/orders"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	paymentstripe "github.com/delicado-shop/delicado-api/pkg/stripe"
)

// Outcome labels how an event was handled. It is used for metrics and logs.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeRecorded  Outcome = "recorded"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeRejected  Outcome = "rejected"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeError     Outcome = "error"
)

type paymentHandler interface {
	HandlePaymentSucceeded(ctx context.Context, event orders.PaymentSucceeded) (*orders.FinalizeResult, error)
	HandlePaymentFailed(ctx context.Context, event orders.PaymentFailure) error
}

type webhookMetrics interface {
	WebhookEvent(eventType, outcome string)
}

type ServiceParams struct {
	Orders  paymentHandler
	Metrics webhookMetrics
	Logger  *logger.Logger
}

type Service struct {
	orders  paymentHandler
	metrics webhookMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	return &Service{orders: params.Orders, metrics: params.Metrics, logg: params.Logger}, nil
}

// HandleEvent applies a verified event. Events that reference unknown orders
// or contradict the stored order are acknowledged and logged; only
// infrastructure failures are returned so Stripe retries the delivery.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"stripe_event_id":   event.ID,
			"stripe_event_type": string(event.Type),
		})
	}

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		outcome = s.classify(ctx, err)
		if outcome == OutcomeError {
			s.record(event.Type, outcome)
			return outcome, err
		}
	}
	s.record(event.Type, outcome)
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (Outcome, error) {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		pi, err := decodeIntent(event)
		if err != nil {
			return OutcomeRejected, err
		}
		result, err := s.orders.HandlePaymentSucceeded(ctx, orders.PaymentSucceeded{
			OrderID:         orderIDFromMetadata(pi.Metadata),
			PaymentIntentID: pi.ID,
			AmountReceived:  pi.AmountReceived,
			Currency:        string(pi.Currency),
		})
		if err != nil {
			return OutcomeError, err
		}
		if result != nil && result.Applied {
			return OutcomeApplied, nil
		}
		return OutcomeNoop, nil
	case stripe.EventTypePaymentIntentPaymentFailed:
		pi, err := decodeIntent(event)
		if err != nil {
			return OutcomeRejected, err
		}
		failure := orders.PaymentFailure{
			OrderID:         orderIDFromMetadata(pi.Metadata),
			PaymentIntentID: pi.ID,
		}
		if pi.LastPaymentError != nil {
			failure.FailureCode = string(pi.LastPaymentError.Code)
			failure.FailureMessage = pi.LastPaymentError.Msg
		}
		if err := s.orders.HandlePaymentFailed(ctx, failure); err != nil {
			return OutcomeError, err
		}
		return OutcomeRecorded, nil
	default:
		return OutcomeIgnored, nil
	}
}

func (s *Service) classify(ctx context.Context, err error) Outcome {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.warn(ctx, "stripe.webhook.order_not_found", err)
		return OutcomeUnmatched
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict),
		pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		s.warn(ctx, "stripe.webhook.rejected", err)
		return OutcomeRejected
	default:
		if s.logg != nil {
			s.logg.Error(ctx, "stripe.webhook.failed", err)
		}
		return OutcomeError
	}
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), msg)
}

func (s *Service) record(eventType stripe.EventType, outcome Outcome) {
	if s.metrics != nil {
		s.metrics.WebhookEvent(string(eventType), string(outcome))
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if pi.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &pi, nil
}

func orderIDFromMetadata(metadata map[string]string) *uuid.UUID {
	raw, ok := metadata[paymentstripe.MetadataOrderID]
	if !ok {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
