package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/delicado-shop/delicado-api/pkg/types"
)

type Personalization struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	TemplateID uuid.UUID        `gorm:"column:template_id;type:uuid;not null"`
	UserID     *uuid.UUID       `gorm:"column:user_id;type:uuid"`
	CustomText string           `gorm:"column:custom_text;not null;default:''"`
	TextStyle  *types.TextStyle `gorm:"column:text_style;type:jsonb;serializer:json"`
	PreviewURL string           `gorm:"column:preview_url;not null;default:''"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (Personalization) TableName() string { return "personalizations" }

// Config converts the stored row into the cart-facing configuration.
func (p Personalization) Config() types.PersonalizationConfig {
	id := p.ID
	return types.PersonalizationConfig{
		ID:         &id,
		ProductID:  p.ProductID,
		TemplateID: p.TemplateID,
		CustomText: p.CustomText,
		TextStyle:  p.TextStyle,
		PreviewURL: p.PreviewURL,
	}
}
