package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

// ItemInput is one cart line submitted at checkout. Prices are never taken
// from the client.
type ItemInput struct {
	ProductID         uuid.UUID  `json:"product_id" validate:"required"`
	Quantity          int        `json:"quantity" validate:"required,min=1,max=99"`
	PersonalizationID *uuid.UUID `json:"personalization_id,omitempty"`
}

// CheckoutRequest is the body of create-payment-intent and cash-order.
type CheckoutRequest struct {
	Items           []ItemInput   `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	Email           string        `json:"email,omitempty" validate:"omitempty,email"`
}

// CheckoutInput adds caller identity to a checkout request.
type CheckoutInput struct {
	CheckoutRequest
	UserID         *uuid.UUID
	ActorEmail     string
	IdempotencyKey string
}

// PaymentIntentResult is returned to the client to confirm the card payment.
type PaymentIntentResult struct {
	OrderID         uuid.UUID       `json:"order_id"`
	ClientSecret    string          `json:"client_secret"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type FinalizeRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type UpdateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,oneof=pending processing completed cancelled refunded"`
}

// PaymentSucceeded is what the webhook receiver extracts from a
// payment_intent.succeeded event.
type PaymentSucceeded struct {
	OrderID         *uuid.UUID
	PaymentIntentID string
	AmountReceived  int64
	Currency        string
}

// PaymentFailure is what the webhook receiver extracts from a
// payment_intent.payment_failed event.
type PaymentFailure struct {
	OrderID         *uuid.UUID
	PaymentIntentID string
	FailureCode     string
	FailureMessage  string
}

// FinalizeResult reports whether this call performed the transition.
type FinalizeResult struct {
	Order   *OrderDTO
	Applied bool
}

type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	PaymentIntentID *string             `json:"payment_intent_id,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Status          enums.OrderStatus   `json:"status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Currency        string              `json:"currency"`
	ShippingAddress types.Address       `json:"shipping_address"`
	Items           []types.OrderItem   `json:"items"`
	FinalizedAt     *time.Time          `json:"finalized_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderList struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toOrderDTO(o models.Order) OrderDTO {
	items := o.Items
	if items == nil {
		items = []types.OrderItem{}
	}
	return OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		PaymentIntentID: o.PaymentIntentID,
		PaymentMethod:   o.PaymentMethod,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		ShippingAddress: o.ShippingAddress,
		Items:           items,
		FinalizedAt:     o.FinalizedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
