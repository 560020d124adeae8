package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/pagination"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

// MaxSavedAddresses caps the address book per user.
const MaxSavedAddresses = 10

// Service covers profile management for the signed-in user and the admin
// user listing.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	AddAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error)
	RemoveAddress(ctx context.Context, userID uuid.UUID, index int) (*UserDTO, error)
	ListUsers(ctx context.Context, input ListUsersInput) (*UserListResult, error)
	AdminUpdateUser(ctx context.Context, actorID, userID uuid.UUID, input AdminUpdateInput) (*UserDTO, error)
}

type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

// AdminUpdateInput is what an administrator may change on another account.
type AdminUpdateInput struct {
	Name    *string
	Phone   *string
	IsAdmin *bool
}

type ListUsersInput struct {
	Search  string
	IsAdmin *bool
	Params  pagination.Params
}

type UserListResult struct {
	Items      []UserDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyNameAndPhone(user, input.Name, input.Phone); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return FromModel(user), nil
}

func (s *service) AddAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Addresses) >= MaxSavedAddresses {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d addresses can be saved", MaxSavedAddresses)
	}
	user.Addresses = append(user.Addresses, address.Normalize())
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
	}
	return FromModel(user), nil
}

func (s *service) RemoveAddress(ctx context.Context, userID uuid.UUID, index int) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(user.Addresses) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	next := make([]types.Address, 0, len(user.Addresses)-1)
	next = append(next, user.Addresses[:index]...)
	next = append(next, user.Addresses[index+1:]...)
	user.Addresses = next
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove address")
	}
	return FromModel(user), nil
}

func (s *service) ListUsers(ctx context.Context, input ListUsersInput) (*UserListResult, error) {
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListQuery{
		Search:  strings.ToLower(strings.TrimSpace(input.Search)),
		IsAdmin: input.IsAdmin,
		Limit:   input.Params.Limit,
		Cursor:  cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	page, next := pagination.Trim(rows, input.Params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	items := make([]UserDTO, 0, len(page))
	for i := range page {
		items = append(items, *FromModel(&page[i]))
	}
	return &UserListResult{Items: items, NextCursor: next}, nil
}

func (s *service) AdminUpdateUser(ctx context.Context, actorID, userID uuid.UUID, input AdminUpdateInput) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.IsAdmin != nil && !*input.IsAdmin && actorID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "administrators cannot revoke their own admin access")
	}
	if err := applyNameAndPhone(user, input.Name, input.Phone); err != nil {
		return nil, err
	}
	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return FromModel(user), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func applyNameAndPhone(user *models.User, name, phone *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		user.Name = trimmed
	}
	if phone != nil {
		trimmed := strings.TrimSpace(*phone)
		if trimmed == "" {
			user.Phone = nil
		} else {
			user.Phone = &trimmed
		}
	}
	return nil
}
