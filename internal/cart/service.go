package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/sessionstate"
)

// StateKind names cart state in session storage.
const StateKind = "cart"

// Service exposes the cart of the caller's session.
type Service interface {
	Get(ctx context.Context, sessionID string) (State, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (State, error)
	SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (State, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) (State, error)
	Clear(ctx context.Context, sessionID string) (State, error)
}

type AddItemInput struct {
	ProductID         uuid.UUID  `json:"product_id" validate:"required"`
	Quantity          int        `json:"quantity" validate:"omitempty,min=1,max=99"`
	PersonalizationID *uuid.UUID `json:"personalization_id,omitempty"`
}

type SetQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type personalizationLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Personalization, error)
}

type ServiceParams struct {
	Storage          sessionstate.Storage
	TTL              time.Duration
	Products         productLookup
	Personalizations personalizationLookup
	Now              func() time.Time
}

type service struct {
	store            *sessionstate.Store[State]
	products         productLookup
	personalizations personalizationLookup
	now              func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("session storage required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:            sessionstate.NewStore(params.Storage, StateKind, params.TTL, Empty),
		products:         params.Products,
		personalizations: params.Personalizations,
		now:              now,
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return state, mapError(err)
	}
	return state, nil
}

// AddItem snapshots the product's current price into the cart. Stock is not
// checked here.
func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (State, error) {
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Empty(), pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return Empty(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	action := Action{
		Kind: ActionAdd,
		Product: &ProductSnapshot{
			ID:       product.ID,
			Name:     product.Name,
			Category: product.Category,
			ImageURL: product.ImageURL,
			Price:    product.Price.Round(2),
		},
		Quantity: input.Quantity,
	}

	if input.PersonalizationID != nil && *input.PersonalizationID != uuid.Nil {
		if s.personalizations == nil {
			return Empty(), pkgerrors.New(pkgerrors.CodeValidation, "personalized items are not supported")
		}
		saved, err := s.personalizations.FindByID(ctx, *input.PersonalizationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Empty(), pkgerrors.New(pkgerrors.CodeNotFound, "personalization not found")
			}
			return Empty(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load personalization")
		}
		if saved.ProductID != product.ID {
			return Empty(), pkgerrors.New(pkgerrors.CodeValidation, "personalization belongs to another product")
		}
		cfg := saved.Config()
		action.Personalization = &cfg
	}
	return s.apply(ctx, sessionID, action)
}

func (s *service) SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (State, error) {
	return s.apply(ctx, sessionID, Action{Kind: ActionSetQuantity, LineID: lineID, Quantity: quantity})
}

func (s *service) RemoveItem(ctx context.Context, sessionID, lineID string) (State, error) {
	return s.apply(ctx, sessionID, Action{Kind: ActionRemove, LineID: lineID})
}

func (s *service) Clear(ctx context.Context, sessionID string) (State, error) {
	state, err := s.store.Reset(ctx, sessionID)
	if err != nil {
		return state, mapError(err)
	}
	return state, nil
}

func (s *service) apply(ctx context.Context, sessionID string, action Action) (State, error) {
	action.At = s.now()
	state, err := s.store.Apply(ctx, sessionID, func(current State) (State, error) {
		return Reduce(current, action)
	})
	if err != nil {
		return state, mapError(err)
	}
	return state, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, sessionstate.ErrInvalidSessionID):
		return pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Session-Id header is required")
	case errors.Is(err, ErrLineNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, err.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrQuantityTooHigh),
		errors.Is(err, ErrCartFull),
		errors.Is(err, ErrInvalidProduct),
		errors.Is(err, ErrUnknownAction):
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart storage")
	}
}
