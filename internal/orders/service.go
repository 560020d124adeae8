package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/metrics"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/outbox/payloads"
	"github.com/delicado-shop/delicado-api/pkg/pagination"
	paymentstripe "github.com/delicado-shop/delicado-api/pkg/stripe"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

// Finalize sources recorded on order.completed events and metrics.
const (
	SourceClient  = "client"
	SourceWebhook = "webhook"
)

const defaultCurrency = "usd"

// Service is the checkout and order lifecycle.
type Service interface {
	CreatePaymentIntent(ctx context.Context, input CheckoutInput) (*PaymentIntentResult, error)
	CreateCashOrder(ctx context.Context, input CheckoutInput) (*OrderDTO, error)
	FinalizeOrder(ctx context.Context, orderID uuid.UUID) (*FinalizeResult, error)
	HandlePaymentSucceeded(ctx context.Context, event PaymentSucceeded) (*FinalizeResult, error)
	HandlePaymentFailed(ctx context.Context, event PaymentFailure) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	AdminListOrders(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error)
	AdminUpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams bundles the dependencies of the order service. Payments may
// be nil, in which case only cash orders are accepted.
type ServiceParams struct {
	Repo             Repository
	Tx               txRunner
	Catalog          Catalog
	Personalizations PersonalizationLookup
	Payments         PaymentGateway
	Outbox           outbox.Emitter
	Metrics          checkoutMetrics
	Logger           *logger.Logger
	Currency         string
	Now              func() time.Time
}

type service struct {
	repo             Repository
	tx               txRunner
	catalog          Catalog
	personalizations PersonalizationLookup
	payments         PaymentGateway
	outbox           outbox.Emitter
	metrics          checkoutMetrics
	logg             *logger.Logger
	currency         string
	now              func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	svc := &service{
		repo:             params.Repo,
		tx:               params.Tx,
		catalog:          params.Catalog,
		personalizations: params.Personalizations,
		payments:         params.Payments,
		outbox:           params.Outbox,
		metrics:          params.Metrics,
		logg:             params.Logger,
		currency:         strings.ToLower(strings.TrimSpace(params.Currency)),
		now:              params.Now,
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewCheckoutMetrics(nil)
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.currency == "" && svc.payments != nil {
		svc.currency = svc.payments.Currency()
	}
	if svc.currency == "" {
		svc.currency = defaultCurrency
	}
	return svc, nil
}

func (s *service) CreatePaymentIntent(ctx context.Context, input CheckoutInput) (*PaymentIntentResult, error) {
	if s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	order, err := s.buildOrder(ctx, input, enums.PaymentMethodCard, enums.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return s.emitCreated(ctx, tx, order)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	logCtx := s.logCtx(ctx, order.ID)
	intent, err := s.payments.CreatePaymentIntent(ctx, paymentstripe.CreateIntentInput{
		OrderID:        order.ID.String(),
		Amount:         order.TotalAmount,
		ReceiptEmail:   receiptEmail(input, order.ShippingAddress),
		IdempotencyKey: "order-intent-" + order.ID.String(),
	})
	if err != nil {
		// the pending order stays behind; the customer can retry checkout
		s.metrics.PaymentFailed("create_intent")
		s.logError(logCtx, "order.intent_failed", err)
		return nil, err
	}

	if err := s.repo.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		s.logError(logCtx, "order.intent_link_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment intent")
	}
	s.metrics.OrderCreated(string(enums.PaymentMethodCard))
	s.logInfo(logCtx, "order.intent_created")

	return &PaymentIntentResult{
		OrderID:         order.ID,
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          order.TotalAmount,
		Currency:        order.Currency,
	}, nil
}

func (s *service) CreateCashOrder(ctx context.Context, input CheckoutInput) (*OrderDTO, error) {
	order, err := s.buildOrder(ctx, input, enums.PaymentMethodCash, enums.OrderStatusProcessing)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := s.decrementStock(ctx, tx, order); err != nil {
			return err
		}
		return s.emitCreated(ctx, tx, order)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cash order")
	}
	s.metrics.OrderCreated(string(enums.PaymentMethodCash))
	s.logInfo(s.logCtx(ctx, order.ID), "order.cash_created")

	return s.GetOrder(ctx, order.ID)
}

// FinalizeOrder is the client-side shortcut after payment confirmation. The
// payment intent is re-read from the provider so the client cannot complete an
// unpaid order.
func (s *service) FinalizeOrder(ctx context.Context, orderID uuid.UUID) (*FinalizeResult, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending || order.FinalizedAt != nil {
		dto := toOrderDTO(*order)
		s.metrics.OrderFinalized(SourceClient, false)
		return &FinalizeResult{Order: &dto, Applied: false}, nil
	}
	if order.PaymentMethod != enums.PaymentMethodCard || order.PaymentIntentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment to confirm")
	}
	if s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}

	intent, err := s.payments.RetrievePaymentIntent(ctx, *order.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if err := verifyIntent(order, intent); err != nil {
		return nil, err
	}
	return s.finalize(ctx, order, SourceClient, intent.ID)
}

func (s *service) HandlePaymentSucceeded(ctx context.Context, event PaymentSucceeded) (*FinalizeResult, error) {
	order, err := s.findForEvent(ctx, event.OrderID, event.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID != nil && *order.PaymentIntentID != event.PaymentIntentID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent does not belong to order")
	}
	if order.Status != enums.OrderStatusPending || order.FinalizedAt != nil {
		dto := toOrderDTO(*order)
		s.metrics.OrderFinalized(SourceWebhook, false)
		return &FinalizeResult{Order: &dto, Applied: false}, nil
	}
	expected, err := paymentstripe.ToMinorUnits(order.TotalAmount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order total")
	}
	if event.AmountReceived != expected || !strings.EqualFold(event.Currency, order.Currency) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment amount does not match order total").
			WithDetails(map[string]any{
				"expected":          expected,
				"received":          event.AmountReceived,
				"expected_currency": order.Currency,
				"received_currency": event.Currency,
			})
	}
	return s.finalize(ctx, order, SourceWebhook, event.PaymentIntentID)
}

// HandlePaymentFailed records a payment.failed event. The order itself stays
// pending so the customer can retry.
func (s *service) HandlePaymentFailed(ctx context.Context, event PaymentFailure) error {
	order, err := s.findForEvent(ctx, event.OrderID, event.PaymentIntentID)
	if err != nil {
		return err
	}
	s.metrics.PaymentFailed("confirm")
	if order.Status != enums.OrderStatusPending {
		return nil
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(order.UserID, false),
			Data: payloads.PaymentFailedEvent{
				OrderID:         order.ID,
				PaymentIntentID: event.PaymentIntentID,
				FailureCode:     event.FailureCode,
				FailureMessage:  event.FailureMessage,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment failure")
	}
	s.logInfo(s.logCtx(ctx, order.ID), "order.payment_failed")
	return nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	return s.list(ctx, ListQuery{UserID: &userID}, params)
}

func (s *service) AdminListOrders(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", *status)
	}
	return s.list(ctx, ListQuery{Status: status}, params)
}

// AdminUpdateStatus sets any status. It never touches stock, and moving a
// finalized order back to pending does not make it finalizable again:
// finalized_at stays set and finalize only decrements inventory once.
func (s *service) AdminUpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		dto := toOrderDTO(*order)
		return &dto, nil
	}

	previous := order.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, previous, status)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		changedBy := actorID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(&changedBy, true),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				PreviousStatus: previous,
				Status:         status,
				ChangedBy:      &changedBy,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	logCtx := s.logCtx(ctx, order.ID)
	logCtx = s.withFields(logCtx, map[string]any{"from": previous, "to": status})
	s.logInfo(logCtx, "order.status_changed")
	return s.GetOrder(ctx, order.ID)
}

func (s *service) finalize(ctx context.Context, order *models.Order, source, paymentIntentID string) (*FinalizeResult, error) {
	now := s.now().UTC()
	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if order.PaymentIntentID == nil && paymentIntentID != "" {
			if err := repo.SetPaymentIntent(ctx, order.ID, paymentIntentID); err != nil {
				return err
			}
		}
		ok, err := repo.MarkCompleted(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.decrementStock(ctx, tx, order); err != nil {
			return err
		}
		applied = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(order.UserID, false),
			OccurredAt:    now,
			Data: payloads.OrderCompletedEvent{
				OrderID:         order.ID,
				UserID:          order.UserID,
				PaymentIntentID: paymentIntentID,
				TotalAmount:     order.TotalAmount,
				Currency:        order.Currency,
				Items:           orderLines(order.Items),
				FinalizedAt:     now,
				Source:          source,
			},
		})
	})
	if err != nil {
		s.logError(s.logCtx(ctx, order.ID), "order.finalize_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize order")
	}
	s.metrics.OrderFinalized(source, applied)

	logCtx := s.withFields(s.logCtx(ctx, order.ID), map[string]any{"source": source, "applied": applied})
	s.logInfo(logCtx, "order.finalized")

	dto, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &FinalizeResult{Order: dto, Applied: applied}, nil
}

func (s *service) decrementStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		found, err := s.catalog.DecrementStock(tx.WithContext(ctx), item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if !found {
			logCtx := s.withFields(s.logCtx(ctx, order.ID), map[string]any{"product_id": item.ProductID.String()})
			s.logWarn(logCtx, "order.stock_product_missing")
		}
	}
	return nil
}

func (s *service) buildOrder(ctx context.Context, input CheckoutInput, method enums.PaymentMethod, status enums.OrderStatus) (*models.Order, error) {
	address := input.ShippingAddress.Normalize()
	if address.FullName == "" || address.Line1 == "" || address.City == "" || address.PostalCode == "" || address.Country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	items, err := priceItems(ctx, s.catalog, s.personalizations, input.Items)
	if err != nil {
		return nil, err
	}
	return &models.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		PaymentMethod:   method,
		Status:          status,
		TotalAmount:     types.SumItems(items).Round(2),
		Currency:        s.currency,
		ShippingAddress: address,
		Items:           items,
	}, nil
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorFor(order.UserID, false),
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			PaymentMethod: order.PaymentMethod,
			Status:        order.Status,
			TotalAmount:   order.TotalAmount,
			Currency:      order.Currency,
			Items:         orderLines(order.Items),
		},
	})
}

func (s *service) findForEvent(ctx context.Context, orderID *uuid.UUID, paymentIntentID string) (*models.Order, error) {
	if orderID != nil && *orderID != uuid.Nil {
		return s.load(ctx, *orderID)
	}
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event carries no order reference")
	}
	order, err := s.repo.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) list(ctx context.Context, query ListQuery, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Limit = params.Limit
	query.Cursor = cursor
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderDTO, 0, len(page))
	for _, o := range page {
		items = append(items, toOrderDTO(o))
	}
	return &OrderList{Items: items, NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func verifyIntent(order *models.Order, intent *stripe.PaymentIntent) error {
	if intent == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "payment intent unavailable")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not succeeded").
			WithDetails(map[string]any{"payment_status": string(intent.Status)})
	}
	if intent.Metadata[paymentstripe.MetadataOrderID] != order.ID.String() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent does not belong to order")
	}
	expected, err := paymentstripe.ToMinorUnits(order.TotalAmount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order total")
	}
	if intent.Amount != expected || !strings.EqualFold(string(intent.Currency), order.Currency) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment amount does not match order total")
	}
	return nil
}

func receiptEmail(input CheckoutInput, address types.Address) string {
	for _, candidate := range []string{input.Email, address.Email, input.ActorEmail} {
		if email := strings.TrimSpace(candidate); email != "" {
			return email
		}
	}
	return ""
}

func actorFor(userID *uuid.UUID, admin bool) *outbox.ActorRef {
	if userID == nil || *userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *userID, IsAdmin: admin}
}

func orderLines(items []types.OrderItem) []payloads.OrderLine {
	lines := make([]payloads.OrderLine, 0, len(items))
	for _, item := range items {
		line := payloads.OrderLine{
			ProductID: item.ProductID,
			Category:  item.Category,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if item.Personalization != nil {
			line.PersonalizationID = item.Personalization.ID
		}
		lines = append(lines, line)
	}
	return lines
}

func (s *service) logCtx(ctx context.Context, orderID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithOrderID(ctx, orderID.String())
}

func (s *service) withFields(ctx context.Context, fields map[string]any) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, fields)
}

func (s *service) logInfo(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *service) logWarn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
