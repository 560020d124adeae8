package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is the catalog snapshot frozen into an order at creation.
type OrderItem struct {
	ProductID       uuid.UUID              `json:"product_id"`
	Name            string                 `json:"name"`
	Category        string                 `json:"category"`
	ImageURL        string                 `json:"image_url,omitempty"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	Quantity        int                    `json:"quantity"`
	Personalization *PersonalizationConfig `json:"personalization,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems totals a set of order items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
