package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
)

// TemplateDTO is the design template payload.
type TemplateDTO struct {
	ID                          uuid.UUID `json:"id"`
	Name                        string    `json:"name"`
	Description                 string    `json:"description"`
	ImageURL                    string    `json:"image_url"`
	Category                    string    `json:"category"`
	ApplicableProductCategories []string  `json:"applicable_product_categories"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

type TemplateInput struct {
	Name                        string
	Description                 string
	ImageURL                    string
	Category                    string
	ApplicableProductCategories []string
}

type UpdateTemplateInput struct {
	Name                        *string
	Description                 *string
	ImageURL                    *string
	Category                    *string
	ApplicableProductCategories *[]string
}

type Service interface {
	Create(ctx context.Context, input TemplateInput) (*TemplateDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTemplateInput) (*TemplateDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*TemplateDTO, error)
	List(ctx context.Context) ([]TemplateDTO, error)
	ListByCategory(ctx context.Context, category string) ([]TemplateDTO, error)
	ListByProductCategory(ctx context.Context, productCategory string) ([]TemplateDTO, error)
	// Load returns the stored template for callers that need the model.
	Load(ctx context.Context, id uuid.UUID) (*models.DesignTemplate, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input TemplateInput) (*TemplateDTO, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" || category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
	}
	t := &models.DesignTemplate{
		ID:                          uuid.New(),
		Name:                        name,
		Description:                 strings.TrimSpace(input.Description),
		ImageURL:                    strings.TrimSpace(input.ImageURL),
		Category:                    category,
		ApplicableProductCategories: normalizeCategories(input.ApplicableProductCategories),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create template")
	}
	dto := toDTO(*t)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTemplateInput) (*TemplateDTO, error) {
	t, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		t.Name = name
	}
	if input.Description != nil {
		t.Description = strings.TrimSpace(*input.Description)
	}
	if input.ImageURL != nil {
		t.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		t.Category = category
	}
	if input.ApplicableProductCategories != nil {
		t.ApplicableProductCategories = normalizeCategories(*input.ApplicableProductCategories)
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update template")
	}
	dto := toDTO(*t)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete template")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*TemplateDTO, error) {
	t, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*t)
	return &dto, nil
}

func (s *service) Load(ctx context.Context, id uuid.UUID) (*models.DesignTemplate, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	return t, nil
}

func (s *service) List(ctx context.Context) ([]TemplateDTO, error) {
	rows, err := s.repo.List(ctx)
	return toDTOs(rows, err)
}

func (s *service) ListByCategory(ctx context.Context, category string) ([]TemplateDTO, error) {
	rows, err := s.repo.ListByCategory(ctx, category)
	return toDTOs(rows, err)
}

func (s *service) ListByProductCategory(ctx context.Context, productCategory string) ([]TemplateDTO, error) {
	rows, err := s.repo.ListByProductCategory(ctx, productCategory)
	return toDTOs(rows, err)
}

func toDTOs(rows []models.DesignTemplate, err error) ([]TemplateDTO, error) {
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	out := make([]TemplateDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func toDTO(t models.DesignTemplate) TemplateDTO {
	cats := []string(t.ApplicableProductCategories)
	if cats == nil {
		cats = []string{}
	}
	return TemplateDTO{
		ID:                          t.ID,
		Name:                        t.Name,
		Description:                 t.Description,
		ImageURL:                    t.ImageURL,
		Category:                    t.Category,
		ApplicableProductCategories: cats,
		CreatedAt:                   t.CreatedAt,
		UpdatedAt:                   t.UpdatedAt,
	}
}

// normalizeCategories trims, drops blanks and de-duplicates while keeping order.
func normalizeCategories(in []string) pq.StringArray {
	out := pq.StringArray{}
	seen := map[string]struct{}{}
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
