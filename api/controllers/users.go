package controllers

import (
	"net/http"

	"github.com/delicado-shop/delicado-api/api/responses"
	"github.com/delicado-shop/delicado-api/api/validators"
	"github.com/delicado-shop/delicado-api/internal/users"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

type adminUpdateUserRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	IsAdmin *bool   `json:"is_admin,omitempty"`
}

// AdminListUsers supports ?q= search over email and name and ?admin=true|false.
func AdminListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		input := users.ListUsersInput{
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 100),
			Params: pageParams(r),
		}
		if r.URL.Query().Has("admin") {
			isAdmin, err := validators.ParseQueryBool(r, "admin")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.IsAdmin = &isAdmin
		}
		result, err := svc.ListUsers(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminUpdateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adminUpdateUserRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Name == nil && payload.Phone == nil && payload.IsAdmin == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}
		user, err := svc.AdminUpdateUser(r.Context(), principal.UserID, id, users.AdminUpdateInput{
			Name:    payload.Name,
			Phone:   payload.Phone,
			IsAdmin: payload.IsAdmin,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
