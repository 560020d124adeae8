package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/internal/repo"
	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
)

const batchSize = 500

// Repository runs the aggregate reads behind the admin report.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

type statusRow struct {
	Status enums.OrderStatus
	Orders int64
	Amount decimal.NullDecimal
}

// StatusTotals groups orders created since the cutoff by status.
func (r *Repository) StatusTotals(ctx context.Context, since time.Time) ([]StatusTotal, error) {
	var rows []statusRow
	err := r.base.DB(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS orders, SUM(total_amount) AS amount").
		Where("created_at >= ?", since).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]StatusTotal, 0, len(rows))
	for _, row := range rows {
		amount := decimal.Zero
		if row.Amount.Valid {
			amount = row.Amount.Decimal.Round(2)
		}
		out = append(out, StatusTotal{Status: row.Status, Orders: int(row.Orders), Amount: amount})
	}
	return out, nil
}

// EachCompleted streams completed orders created since the cutoff in batches.
func (r *Repository) EachCompleted(ctx context.Context, since time.Time, fn func([]models.Order) error) error {
	var batch []models.Order
	res := r.base.DB(ctx).
		Select("id", "total_amount", "items", "created_at").
		Where("status = ? AND created_at >= ?", enums.OrderStatusCompleted, since).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		})
	return res.Error
}
