package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	paymentstripe "github.com/delicado-shop/delicado-api/pkg/stripe"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	SetPaymentIntent(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
	MarkCompleted(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Catalog is the product surface checkout needs: authoritative prices and
// the stock decrement applied on finalize.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	DecrementStock(tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
}

// PersonalizationLookup resolves saved personalizations referenced by cart lines.
type PersonalizationLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Personalization, error)
}

// PaymentGateway is the slice of the Stripe client used by checkout.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, in paymentstripe.CreateIntentInput) (*stripe.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	Currency() string
}

type checkoutMetrics interface {
	OrderCreated(method string)
	OrderFinalized(source string, applied bool)
	PaymentFailed(stage string)
}
