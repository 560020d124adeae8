package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DesignTemplate is artwork a customer can print on products whose category
// appears in ApplicableProductCategories. An empty list applies to everything.
type DesignTemplate struct {
	ID                          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name                        string         `gorm:"column:name;not null"`
	Description                 string         `gorm:"column:description;not null;default:''"`
	ImageURL                    string         `gorm:"column:image_url;not null;default:''"`
	Category                    string         `gorm:"column:category;not null"`
	ApplicableProductCategories pq.StringArray `gorm:"column:applicable_product_categories;type:text[];not null;default:'{}'"`
	CreatedAt                   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (DesignTemplate) TableName() string { return "design_templates" }

// AppliesTo reports whether the template can be used on a product category.
func (t DesignTemplate) AppliesTo(productCategory string) bool {
	if len(t.ApplicableProductCategories) == 0 {
		return true
	}
	for _, c := range t.ApplicableProductCategories {
		if c == productCategory {
			return true
		}
	}
	return false
}
