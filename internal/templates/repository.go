package templates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/internal/repo"
	"github.com/delicado-shop/delicado-api/pkg/db/models"
)

type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, t *models.DesignTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(t).Error
}

func (r *Repository) Save(ctx context.Context, t *models.DesignTemplate) error {
	return r.base.DB(ctx).Save(t).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.base.DB(ctx).Where("id = ?", id).Delete(&models.DesignTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DesignTemplate, error) {
	var t models.DesignTemplate
	if err := r.base.DB(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) List(ctx context.Context) ([]models.DesignTemplate, error) {
	var rows []models.DesignTemplate
	err := r.base.DB(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListByCategory(ctx context.Context, category string) ([]models.DesignTemplate, error) {
	var rows []models.DesignTemplate
	err := r.base.DB(ctx).
		Where("category = ?", strings.TrimSpace(category)).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListByProductCategory returns templates usable on productCategory. Templates
// with no applicable categories apply everywhere. Postgres filters with the
// array operators; other dialects filter in memory.
func (r *Repository) ListByProductCategory(ctx context.Context, productCategory string) ([]models.DesignTemplate, error) {
	productCategory = strings.TrimSpace(productCategory)
	if r.base.Dialect() == "postgres" {
		var rows []models.DesignTemplate
		err := r.base.DB(ctx).
			Where("? = ANY(applicable_product_categories) OR cardinality(applicable_product_categories) = 0", productCategory).
			Order("name ASC").
			Order("id ASC").
			Find(&rows).Error
		return rows, err
	}

	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.DesignTemplate, 0, len(all))
	for _, t := range all {
		if t.AppliesTo(productCategory) {
			out = append(out, t)
		}
	}
	return out, nil
}
