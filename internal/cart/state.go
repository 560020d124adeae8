// Package cart keeps a visitor's cart as an explicit state container: a pure
// reducer over cart actions plus a session-scoped store.
package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/pkg/types"
)

// LineItem is a product snapshot taken when it was added. UnitPrice is frozen
// at add time; checkout re-prices from the catalog.
type LineItem struct {
	ID              string                       `json:"id"`
	ProductID       uuid.UUID                    `json:"product_id"`
	Name            string                       `json:"name"`
	Category        string                       `json:"category"`
	ImageURL        string                       `json:"image_url,omitempty"`
	UnitPrice       decimal.Decimal              `json:"unit_price"`
	Quantity        int                          `json:"quantity"`
	Personalization *types.PersonalizationConfig `json:"personalization,omitempty"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the whole cart. Total always equals the sum of line subtotals.
type State struct {
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// Empty returns a cart with no items.
func Empty() State {
	return State{Items: []LineItem{}, Total: decimal.Zero}
}

// LineID identifies a cart line. Personalized lines of the same product are
// distinct lines.
func LineID(productID uuid.UUID, personalizationID *uuid.UUID) string {
	if personalizationID == nil || *personalizationID == uuid.Nil {
		return productID.String()
	}
	return productID.String() + ":" + personalizationID.String()
}

func (s State) find(lineID string) int {
	for i, item := range s.Items {
		if item.ID == lineID {
			return i
		}
	}
	return -1
}

func (s State) recomputed() State {
	total := decimal.Zero
	count := 0
	for _, item := range s.Items {
		total = total.Add(item.Subtotal())
		count += item.Quantity
	}
	s.Total = total
	s.ItemCount = count
	return s
}
