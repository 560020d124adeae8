package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Stock is only ever decremented by order
// finalization and never drops below zero.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Category    string          `gorm:"column:category;not null"`
	ImageURL    string          `gorm:"column:image_url;not null;default:''"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Dimensions  *string         `gorm:"column:dimensions"`
	Material    *string         `gorm:"column:material"`
	Care        *string         `gorm:"column:care"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
