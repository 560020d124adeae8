package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/pkg/enums"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

// Order is a checkout record. Items and ShippingAddress are JSON snapshots taken
// when the order is created.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Currency        string              `gorm:"column:currency;not null"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	Items           []types.OrderItem   `gorm:"column:items;type:jsonb;serializer:json;not null"`
	FinalizedAt     *time.Time          `gorm:"column:finalized_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
