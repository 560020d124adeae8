package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/delicado-shop/delicado-api/pkg/types"
)

type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email        string          `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Name         string          `gorm:"column:name;not null"`
	Phone        *string         `gorm:"column:phone"`
	Addresses    []types.Address `gorm:"column:addresses;type:jsonb;serializer:json;not null"`
	IsAdmin      bool            `gorm:"column:is_admin;not null;default:false"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
