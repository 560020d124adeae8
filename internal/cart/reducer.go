package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/pkg/types"
)

type ActionKind string

const (
	ActionAdd         ActionKind = "add"
	ActionRemove      ActionKind = "remove"
	ActionSetQuantity ActionKind = "set_quantity"
	ActionClear       ActionKind = "clear"
)

const (
	MaxLines        = 50
	MaxLineQuantity = 99
)

var (
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidProduct  = errors.New("product snapshot is required")
	ErrCartFull        = fmt.Errorf("cart holds at most %d lines", MaxLines)
	ErrQuantityTooHigh = fmt.Errorf("quantity cannot exceed %d", MaxLineQuantity)
	ErrUnknownAction   = errors.New("unknown cart action")
)

// ProductSnapshot is the catalog data captured when a product is added.
type ProductSnapshot struct {
	ID       uuid.UUID
	Name     string
	Category string
	ImageURL string
	Price    decimal.Decimal
}

// Action is one cart mutation. Add uses Product, Personalization and an
// optional Quantity (default 1); Remove and SetQuantity use LineID.
type Action struct {
	Kind            ActionKind
	Product         *ProductSnapshot
	Personalization *types.PersonalizationConfig
	LineID          string
	Quantity        int
	At              time.Time
}

// Reduce applies action to state and returns the next state. state is never
// modified; on error the returned state equals the input.
func Reduce(state State, action Action) (State, error) {
	next := State{
		Items:     append([]LineItem(nil), state.Items...),
		UpdatedAt: state.UpdatedAt,
	}
	if next.Items == nil {
		next.Items = []LineItem{}
	}

	switch action.Kind {
	case ActionAdd:
		if action.Product == nil || action.Product.ID == uuid.Nil {
			return state, ErrInvalidProduct
		}
		qty := action.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return state, ErrInvalidQuantity
		}
		var personalizationID *uuid.UUID
		if action.Personalization != nil {
			personalizationID = action.Personalization.ID
		}
		id := LineID(action.Product.ID, personalizationID)
		if idx := next.find(id); idx >= 0 {
			if next.Items[idx].Quantity+qty > MaxLineQuantity {
				return state, ErrQuantityTooHigh
			}
			next.Items[idx].Quantity += qty
			break
		}
		if len(next.Items) >= MaxLines {
			return state, ErrCartFull
		}
		if qty > MaxLineQuantity {
			return state, ErrQuantityTooHigh
		}
		next.Items = append(next.Items, LineItem{
			ID:              id,
			ProductID:       action.Product.ID,
			Name:            action.Product.Name,
			Category:        action.Product.Category,
			ImageURL:        action.Product.ImageURL,
			UnitPrice:       action.Product.Price,
			Quantity:        qty,
			Personalization: action.Personalization,
		})

	case ActionRemove:
		idx := next.find(action.LineID)
		if idx < 0 {
			return state, ErrLineNotFound
		}
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)

	case ActionSetQuantity:
		if action.Quantity < 0 {
			return state, ErrInvalidQuantity
		}
		if action.Quantity > MaxLineQuantity {
			return state, ErrQuantityTooHigh
		}
		idx := next.find(action.LineID)
		if idx < 0 {
			return state, ErrLineNotFound
		}
		if action.Quantity == 0 {
			next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
			break
		}
		next.Items[idx].Quantity = action.Quantity

	case ActionClear:
		next.Items = []LineItem{}

	default:
		return state, fmt.Errorf("%w %q", ErrUnknownAction, action.Kind)
	}

	if !action.At.IsZero() {
		at := action.At.UTC()
		next.UpdatedAt = &at
	}
	return next.recomputed(), nil
}
