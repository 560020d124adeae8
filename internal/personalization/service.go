package personalization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	"github.com/delicado-shop/delicado-api/pkg/enums"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/outbox/payloads"
	"github.com/delicado-shop/delicado-api/pkg/sessionstate"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

// StateKind names wizard state in session storage.
const StateKind = "wizard"

// Service drives the wizard for a session and saves the finished configuration.
type Service interface {
	Session(ctx context.Context, sessionID string) (State, error)
	Apply(ctx context.Context, sessionID string, action Action) (State, error)
	Reset(ctx context.Context, sessionID string) (State, error)
	Complete(ctx context.Context, sessionID string, userID *uuid.UUID) (*PersonalizationDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PersonalizationDTO, error)
}

// PersonalizationDTO is a saved configuration ready to attach to a cart line.
type PersonalizationDTO struct {
	types.PersonalizationConfig
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type templateLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.DesignTemplate, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Storage   sessionstate.Storage
	TTL       time.Duration
	Repo      *Repository
	Tx        txRunner
	Products  productLookup
	Templates templateLookup
	Outbox    outbox.Emitter
	Logger    *logger.Logger
}

type service struct {
	store     *sessionstate.Store[State]
	repo      *Repository
	tx        txRunner
	products  productLookup
	templates templateLookup
	outbox    outbox.Emitter
	logg      *logger.Logger
	validate  *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Storage == nil:
		return nil, fmt.Errorf("session storage required")
	case params.Repo == nil:
		return nil, fmt.Errorf("personalization repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Products == nil || params.Templates == nil:
		return nil, fmt.Errorf("catalog lookups required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		store:     sessionstate.NewStore(params.Storage, StateKind, params.TTL, Initial),
		repo:      params.Repo,
		tx:        params.Tx,
		products:  params.Products,
		templates: params.Templates,
		outbox:    params.Outbox,
		logg:      params.Logger,
		validate:  validator.New(),
	}, nil
}

func (s *service) Session(ctx context.Context, sessionID string) (State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return state, mapError(err)
	}
	return state, nil
}

// Apply checks referenced catalog rows before handing the action to the
// reducer, so the stored state only ever points at existing records.
func (s *service) Apply(ctx context.Context, sessionID string, action Action) (State, error) {
	current, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return current, mapError(err)
	}

	switch action.Kind {
	case ActionSelectProduct:
		if action.ID != nil {
			if _, err := s.loadProduct(ctx, *action.ID); err != nil {
				return current, err
			}
		}
	case ActionSelectTemplate:
		if action.ID != nil {
			tmpl, err := s.loadTemplate(ctx, *action.ID)
			if err != nil {
				return current, err
			}
			if current.ProductID != nil {
				if err := s.checkApplies(ctx, *current.ProductID, tmpl); err != nil {
					return current, err
				}
			}
		}
	case ActionSetText:
		if action.TextStyle != nil {
			if err := s.validate.Struct(action.TextStyle); err != nil {
				return current, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid text style")
			}
		}
	case ActionSetPreview:
		if len(action.PreviewURL) > MaxPreviewURLLen {
			return current, pkgerrors.New(pkgerrors.CodeValidation, "preview url is too long")
		}
	}

	state, err := s.store.Apply(ctx, sessionID, func(st State) (State, error) {
		return Reduce(st, action)
	})
	if err != nil {
		return state, mapError(err)
	}
	return state, nil
}

func (s *service) Reset(ctx context.Context, sessionID string) (State, error) {
	state, err := s.store.Reset(ctx, sessionID)
	if err != nil {
		return state, mapError(err)
	}
	return state, nil
}

// Complete saves the configuration and clears the wizard. Text is optional;
// product and template are not.
func (s *service) Complete(ctx context.Context, sessionID string, userID *uuid.UUID) (*PersonalizationDTO, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	cfg, err := state.Config()
	if err != nil {
		return nil, mapError(err)
	}
	tmpl, err := s.loadTemplate(ctx, cfg.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := s.checkApplies(ctx, cfg.ProductID, tmpl); err != nil {
		return nil, err
	}
	if cfg.TextStyle != nil {
		if err := s.validate.Struct(cfg.TextStyle); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid text style")
		}
	}

	row := &models.Personalization{
		ID:         uuid.New(),
		ProductID:  cfg.ProductID,
		TemplateID: cfg.TemplateID,
		UserID:     userID,
		CustomText: cfg.CustomText,
		TextStyle:  cfg.TextStyle,
		PreviewURL: cfg.PreviewURL,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		var actor *outbox.ActorRef
		if userID != nil {
			actor = &outbox.ActorRef{UserID: *userID}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPersonalizationSaved,
			AggregateType: enums.AggregatePersonalization,
			AggregateID:   row.ID,
			Actor:         actor,
			Data: payloads.PersonalizationSavedEvent{
				PersonalizationID: row.ID,
				ProductID:         row.ProductID,
				TemplateID:        row.TemplateID,
				UserID:            userID,
				HasCustomText:     row.CustomText != "",
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save personalization")
	}

	if _, err := s.store.Reset(ctx, sessionID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "personalization_id", row.ID.String()), "personalization.session_reset_failed")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PersonalizationDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "personalization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load personalization")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) checkApplies(ctx context.Context, productID uuid.UUID, tmpl *models.DesignTemplate) error {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !tmpl.AppliesTo(product.Category) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "template %q cannot be applied to %s products", tmpl.Name, product.Category)
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return p, nil
}

func (s *service) loadTemplate(ctx context.Context, id uuid.UUID) (*models.DesignTemplate, error) {
	t, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design template")
	}
	return t, nil
}

func toDTO(p models.Personalization) PersonalizationDTO {
	return PersonalizationDTO{
		PersonalizationConfig: p.Config(),
		UserID:                p.UserID,
		CreatedAt:             p.CreatedAt,
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, sessionstate.ErrInvalidSessionID):
		return pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Session-Id header is required")
	case errors.Is(err, ErrIncomplete),
		errors.Is(err, ErrTextTooLong),
		errors.Is(err, ErrMissingTarget),
		errors.Is(err, ErrUnknownAction):
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	default:
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wizard storage")
	}
}
