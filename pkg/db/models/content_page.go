package models

import (
	"time"

	"github.com/google/uuid"
)

type ContentPage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	Title     string    `gorm:"column:title;not null"`
	Content   string    `gorm:"column:content;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ContentPage) TableName() string { return "content_pages" }
