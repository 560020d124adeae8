package controllers

import (
	"net/http"

	"github.com/delicado-shop/delicado-api/api/responses"
	"github.com/delicado-shop/delicado-api/api/validators"
	"github.com/delicado-shop/delicado-api/internal/templates"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

type templateRequest struct {
	Name                        string   `json:"name" validate:"required,max=200"`
	Description                 string   `json:"description" validate:"max=2000"`
	ImageURL                    string   `json:"image_url" validate:"omitempty,url"`
	Category                    string   `json:"category" validate:"required,max=100"`
	ApplicableProductCategories []string `json:"applicable_product_categories" validate:"omitempty,max=50,dive,required,max=100"`
}

type updateTemplateRequest struct {
	Name                        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description                 *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURL                    *string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Category                    *string   `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	ApplicableProductCategories *[]string `json:"applicable_product_categories,omitempty" validate:"omitempty,max=50,dive,required,max=100"`
}

func ListTemplates(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tmpl)
	}
}

// ListTemplatesByCategory filters on the template's own category.
func ListTemplatesByCategory(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		category, err := validators.PathString(r, "category", 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByCategory(r.Context(), category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListTemplatesForProductCategory returns templates usable on products of the
// given category.
func ListTemplatesForProductCategory(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		category, err := validators.PathString(r, "productCategory", 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByProductCategory(r.Context(), category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CreateTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		var payload templateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Create(r.Context(), templates.TemplateInput{
			Name:                        payload.Name,
			Description:                 payload.Description,
			ImageURL:                    payload.ImageURL,
			Category:                    payload.Category,
			ApplicableProductCategories: payload.ApplicableProductCategories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, tmpl)
	}
}

func UpdateTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateTemplateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Update(r.Context(), id, templates.UpdateTemplateInput{
			Name:                        payload.Name,
			Description:                 payload.Description,
			ImageURL:                    payload.ImageURL,
			Category:                    payload.Category,
			ApplicableProductCategories: payload.ApplicableProductCategories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tmpl)
	}
}

func DeleteTemplate(svc templates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
