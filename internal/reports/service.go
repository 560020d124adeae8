// Package reports aggregates order data for the admin dashboard.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
)

const (
	DefaultDays    = 30
	MaxDays        = 365
	topProductsLen = 10
	dateLayout     = "2006-01-02"
)

type StatusTotal struct {
	Status enums.OrderStatus `json:"status"`
	Orders int               `json:"orders"`
	Amount decimal.Decimal   `json:"amount"`
}

type DailySales struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TopProduct struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Report covers orders created in the trailing window of Days days.
type Report struct {
	Days            int             `json:"days"`
	Since           time.Time       `json:"since"`
	Revenue         decimal.Decimal `json:"revenue"`
	CompletedOrders int             `json:"completed_orders"`
	ByStatus        []StatusTotal   `json:"by_status"`
	DailySales      []DailySales    `json:"daily_sales"`
	TopProducts     []TopProduct    `json:"top_products"`
}

type Service interface {
	Summary(ctx context.Context, days int) (*Report, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) Summary(ctx context.Context, days int) (*Report, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "days must be between 1 and %d", MaxDays)
	}

	today := truncateDay(s.now().UTC())
	since := today.AddDate(0, 0, -(days - 1))

	byStatus, err := s.repo.StatusTotals(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate orders by status")
	}

	daily := make(map[string]*DailySales, days)
	products := map[uuid.UUID]*TopProduct{}
	report := &Report{Days: days, Since: since, Revenue: decimal.Zero, ByStatus: byStatus}

	err = s.repo.EachCompleted(ctx, since, func(batch []models.Order) error {
		for _, order := range batch {
			report.Revenue = report.Revenue.Add(order.TotalAmount)
			report.CompletedOrders++

			key := order.CreatedAt.UTC().Format(dateLayout)
			day, ok := daily[key]
			if !ok {
				day = &DailySales{Date: key, Revenue: decimal.Zero}
				daily[key] = day
			}
			day.Orders++
			day.Revenue = day.Revenue.Add(order.TotalAmount)

			for _, item := range order.Items {
				p, ok := products[item.ProductID]
				if !ok {
					p = &TopProduct{ProductID: item.ProductID, Name: item.Name, Revenue: decimal.Zero}
					products[item.ProductID] = p
				}
				p.Quantity += item.Quantity
				p.Revenue = p.Revenue.Add(item.LineTotal())
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate completed orders")
	}

	report.DailySales = fillDays(since, days, daily)
	report.TopProducts = rankProducts(products, topProductsLen)
	return report, nil
}

// fillDays returns one entry per day in the window, zeroing days without sales.
func fillDays(since time.Time, days int, daily map[string]*DailySales) []DailySales {
	out := make([]DailySales, 0, days)
	for i := 0; i < days; i++ {
		key := since.AddDate(0, 0, i).Format(dateLayout)
		if day, ok := daily[key]; ok {
			out = append(out, *day)
			continue
		}
		out = append(out, DailySales{Date: key, Revenue: decimal.Zero})
	}
	return out
}

func rankProducts(products map[uuid.UUID]*TopProduct, limit int) []TopProduct {
	out := make([]TopProduct, 0, len(products))
	for _, p := range products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
