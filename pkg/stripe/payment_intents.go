package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
)

// MetadataOrderID is the PaymentIntent metadata key that links back to an order.
const MetadataOrderID = "order_id"

// CreateIntentInput describes a card charge for a single order.
type CreateIntentInput struct {
	OrderID        string
	Amount         decimal.Decimal
	ReceiptEmail   string
	IdempotencyKey string
}

// CreatePaymentIntent opens a PaymentIntent with automatic payment methods
// and the order id in its metadata.
func (c *Client) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*stripe.PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured")
	}
	amount, err := ToMinorUnits(in.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid charge amount")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(c.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata(MetadataOrderID, in.OrderID)
	if email := strings.TrimSpace(in.ReceiptEmail); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	pi, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, MapError(err, "create payment intent")
	}
	return pi, nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments are not configured")
	}
	pi, err := c.api.V1PaymentIntents.Retrieve(ctx, id, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		return nil, MapError(err, "retrieve payment intent")
	}
	return pi, nil
}

// ToMinorUnits converts a two-decimal amount into integer cents.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}

// FromMinorUnits converts integer cents back into a decimal amount.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// MapError classifies Stripe failures. Card errors carry the provider message
// to the client; everything else is a dependency failure.
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeCard || stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			msg := stripeErr.Msg
			if msg == "" {
				msg = "payment was declined"
			}
			return pkgerrors.Wrap(pkgerrors.CodePayment, err, msg).
				WithDetails(map[string]any{"provider_code": string(stripeErr.Code)})
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" failed")
}
