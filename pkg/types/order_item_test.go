package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestSumItems(t *testing.T) {
	items := []OrderItem{
		{ProductID: uuid.New(), UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ProductID: uuid.New(), UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1},
	}
	if got := SumItems(items); !got.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected 25.00, got %s", got)
	}
	if got := SumItems(nil); !got.IsZero() {
		t.Fatalf("expected zero for empty items, got %s", got)
	}
}

func TestAddressNormalize(t *testing.T) {
	addr := Address{FullName: " Ana ", Email: " Ana@Example.COM ", Country: "es", Line1: " Calle 1 "}.Normalize()
	if addr.FullName != "Ana" || addr.Email != "ana@example.com" || addr.Country != "ES" || addr.Line1 != "Calle 1" {
		t.Fatalf("unexpected normalized address %+v", addr)
	}
}
