package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/pkg/enums"
)

// OrderLine is the compact item shape carried on order events.
type OrderLine struct {
	ProductID         uuid.UUID       `json:"product_id"`
	Category          string          `json:"category"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	PersonalizationID *uuid.UUID      `json:"personalization_id,omitempty"`
}

// OrderCreatedEvent is emitted when a pending card order or a cash order is written.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      string              `json:"currency"`
	Items         []OrderLine         `json:"items"`
}

// OrderCompletedEvent is emitted once per order when finalize applies.
type OrderCompletedEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	Items           []OrderLine     `json:"items"`
	FinalizedAt     time.Time       `json:"finalized_at"`
	Source          string          `json:"source"`
}

// OrderStatusChangedEvent records an administrative status change.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	ChangedBy      *uuid.UUID        `json:"changed_by,omitempty"`
}

// PaymentFailedEvent mirrors a provider-side payment failure.
type PaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	FailureCode     string    `json:"failure_code,omitempty"`
	FailureMessage  string    `json:"failure_message,omitempty"`
}

// PersonalizationSavedEvent is emitted when a wizard completes.
type PersonalizationSavedEvent struct {
	PersonalizationID uuid.UUID  `json:"personalization_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	TemplateID        uuid.UUID  `json:"template_id"`
	UserID            *uuid.UUID `json:"user_id,omitempty"`
	HasCustomText     bool       `json:"has_custom_text"`
}
