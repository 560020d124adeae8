package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db"
	"github.com/delicado-shop/delicado-api/pkg/db/models"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PageDTO is the public content page payload.
type PageDTO struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PageInput struct {
	Slug    string
	Title   string
	Content string
}

type UpdatePageInput struct {
	Title   *string
	Content *string
}

type Service interface {
	List(ctx context.Context) ([]PageDTO, error)
	Get(ctx context.Context, slug string) (*PageDTO, error)
	Create(ctx context.Context, input PageInput) (*PageDTO, error)
	Update(ctx context.Context, slug string, input UpdatePageInput) (*PageDTO, error)
	Delete(ctx context.Context, slug string) error
}

type service struct {
	db *gorm.DB
}

func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &service{db: conn}, nil
}

func (s *service) List(ctx context.Context) ([]PageDTO, error) {
	var rows []models.ContentPage
	if err := s.db.WithContext(ctx).Order("slug ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list content pages")
	}
	out := make([]PageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, slug string) (*PageDTO, error) {
	page, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*page)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input PageInput) (*PageDTO, error) {
	slug := normalizeSlug(input.Slug)
	if !slugPattern.MatchString(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase words separated by dashes")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	page := models.ContentPage{
		ID:      uuid.New(),
		Slug:    slug,
		Title:   title,
		Content: input.Content,
	}
	if err := s.db.WithContext(ctx).Create(&page).Error; err != nil {
		if db.IsUniqueViolation(err, "content_pages_slug_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a page with this slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create content page")
	}
	dto := toDTO(page)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, slug string, input UpdatePageInput) (*PageDTO, error) {
	page, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		page.Title = title
	}
	if input.Content != nil {
		page.Content = *input.Content
	}
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content page")
	}
	dto := toDTO(*page)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, slug string) error {
	res := s.db.WithContext(ctx).Where("slug = ?", normalizeSlug(slug)).Delete(&models.ContentPage{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete content page")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "page not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, slug string) (*models.ContentPage, error) {
	var page models.ContentPage
	err := s.db.WithContext(ctx).Where("slug = ?", normalizeSlug(slug)).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "page not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load content page")
	}
	return &page, nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func toDTO(p models.ContentPage) PageDTO {
	return PageDTO{Slug: p.Slug, Title: p.Title, Content: p.Content, UpdatedAt: p.UpdatedAt}
}
