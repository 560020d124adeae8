package personalization

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/internal/repo"
	"github.com/delicado-shop/delicado-api/pkg/db/models"
)

// Repository persists completed personalizations.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, p *models.Personalization) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(p).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Personalization, error) {
	var p models.Personalization
	if err := r.base.DB(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs loads every personalization in ids keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Personalization, error) {
	out := make(map[uuid.UUID]models.Personalization, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Personalization
	if err := r.base.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
