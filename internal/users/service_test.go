package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delicado-shop/delicado-api/pkg/db/dbtest"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/pagination"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func seedUser(t *testing.T, repo *Repository, email string, admin bool) uuid.UUID {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{Email: email, PasswordHash: "hash", Name: "Test", IsAdmin: admin})
	require.NoError(t, err)
	return user.ID
}

func TestProfileUpdate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := seedUser(t, repo, "ana@example.com", false)

	name := "  Ana Ruiz "
	phone := " +34 600 000 000 "
	updated, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", updated.Name)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+34 600 000 000", *updated.Phone)

	blank := " "
	_, err = svc.UpdateProfile(ctx, id, UpdateProfileInput{Name: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.GetProfile(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAddAndRemoveAddress(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := seedUser(t, repo, "ana@example.com", false)

	addr := types.Address{FullName: " Ana ", Line1: "Calle Mayor 1", City: "Madrid", PostalCode: "28013", Country: "es"}
	profile, err := svc.AddAddress(ctx, id, addr)
	require.NoError(t, err)
	require.Len(t, profile.Addresses, 1)
	assert.Equal(t, "ES", profile.Addresses[0].Country)
	assert.Equal(t, "Ana", profile.Addresses[0].FullName)

	second := addr
	second.City = "Sevilla"
	_, err = svc.AddAddress(ctx, id, second)
	require.NoError(t, err)

	profile, err = svc.RemoveAddress(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, profile.Addresses, 1)
	assert.Equal(t, "Sevilla", profile.Addresses[0].City)

	_, err = svc.RemoveAddress(ctx, id, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminUpdateUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	admin := seedUser(t, repo, "admin@example.com", true)
	customer := seedUser(t, repo, "c@example.com", false)

	grant := true
	updated, err := svc.AdminUpdateUser(ctx, admin, customer, AdminUpdateInput{IsAdmin: &grant})
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin)

	revoke := false
	_, err = svc.AdminUpdateUser(ctx, admin, admin, AdminUpdateInput{IsAdmin: &revoke})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListUsersPaginates(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "a@example.com", false)
	seedUser(t, repo, "b@example.com", true)
	seedUser(t, repo, "c@example.com", false)

	first, err := svc.ListUsers(ctx, ListUsersInput{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListUsers(ctx, ListUsersInput{Params: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	admins := true
	filtered, err := svc.ListUsers(ctx, ListUsersInput{IsAdmin: &admins})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "b@example.com", filtered.Items[0].Email)

	search, err := svc.ListUsers(ctx, ListUsersInput{Search: "C@EXAMPLE"})
	require.NoError(t, err)
	assert.Len(t, search.Items, 1)
}
