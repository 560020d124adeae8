package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/dbtest"
	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

var fixedNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func insertOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, created time.Time, items ...types.OrderItem) {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		PaymentMethod: enums.PaymentMethodCard,
		Status:        status,
		TotalAmount:   types.SumItems(items),
		Currency:      "usd",
		ShippingAddress: types.Address{
			FullName: "Ana Ruiz", Line1: "Calle Mayor 1", City: "Madrid", PostalCode: "28013", Country: "ES",
		},
		Items:     items,
		CreatedAt: created,
	}
	require.NoError(t, conn.Create(order).Error)
}

func item(id uuid.UUID, name, price string, qty int) types.OrderItem {
	return types.OrderItem{ProductID: id, Name: name, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestSummaryAggregates(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), func() time.Time { return fixedNow })
	require.NoError(t, err)

	mug, tote := uuid.New(), uuid.New()
	today := fixedNow.Add(-2 * time.Hour)
	yesterday := fixedNow.AddDate(0, 0, -1)

	insertOrder(t, conn, enums.OrderStatusCompleted, today, item(mug, "Mug", "10.00", 2), item(tote, "Tote", "5.00", 1))
	insertOrder(t, conn, enums.OrderStatusCompleted, yesterday, item(tote, "Tote", "5.00", 4))
	insertOrder(t, conn, enums.OrderStatusPending, today, item(mug, "Mug", "10.00", 9))
	// outside the window
	insertOrder(t, conn, enums.OrderStatusCompleted, fixedNow.AddDate(0, 0, -10), item(mug, "Mug", "10.00", 50))

	report, err := svc.Summary(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Days)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), report.Since)
	assert.True(t, report.Revenue.Equal(decimal.RequireFromString("45.00")), report.Revenue.String())
	assert.Equal(t, 2, report.CompletedOrders)

	require.Len(t, report.ByStatus, 2)
	statuses := map[enums.OrderStatus]StatusTotal{}
	for _, s := range report.ByStatus {
		statuses[s.Status] = s
	}
	assert.Equal(t, 2, statuses[enums.OrderStatusCompleted].Orders)
	assert.True(t, statuses[enums.OrderStatusCompleted].Amount.Equal(decimal.RequireFromString("45.00")))
	assert.Equal(t, 1, statuses[enums.OrderStatusPending].Orders)
	assert.True(t, statuses[enums.OrderStatusPending].Amount.Equal(decimal.RequireFromString("90.00")))

	require.Len(t, report.DailySales, 7)
	assert.Equal(t, "2025-03-04", report.DailySales[0].Date)
	assert.Equal(t, 0, report.DailySales[0].Orders)
	last := report.DailySales[6]
	assert.Equal(t, "2025-03-10", last.Date)
	assert.Equal(t, 1, last.Orders)
	assert.True(t, last.Revenue.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, report.DailySales[5].Revenue.Equal(decimal.RequireFromString("20.00")))

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, tote, report.TopProducts[0].ProductID)
	assert.Equal(t, 5, report.TopProducts[0].Quantity)
	assert.Equal(t, mug, report.TopProducts[1].ProductID)
	assert.True(t, report.TopProducts[1].Revenue.Equal(decimal.RequireFromString("20.00")))
}

func TestSummaryEmptyWindow(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)), func() time.Time { return fixedNow })
	require.NoError(t, err)

	report, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDays, report.Days)
	assert.True(t, report.Revenue.IsZero())
	assert.Empty(t, report.ByStatus)
	assert.Len(t, report.DailySales, DefaultDays)
	assert.Empty(t, report.TopProducts)
}

func TestSummaryRejectsBadWindow(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)), nil)
	require.NoError(t, err)

	for _, days := range []int{-1, MaxDays + 1} {
		_, err := svc.Summary(context.Background(), days)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "days=%d", days)
	}
}
