package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/delicado-shop/delicado-api/api/middleware"
	"github.com/delicado-shop/delicado-api/pkg/auth"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/pagination"
)

var errServiceUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "service unavailable")

// requirePrincipal returns the authenticated caller or a 401 error.
func requirePrincipal(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.UserID == uuid.Nil {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

// optionalUserID returns the caller's id when the request was authenticated.
func optionalUserID(r *http.Request) *uuid.UUID {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.UserID == uuid.Nil {
		return nil
	}
	id := p.UserID
	return &id
}

func requireSession(r *http.Request) (string, error) {
	id := middleware.SessionIDFromContext(r.Context())
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required")
	}
	return id, nil
}

func pageParams(r *http.Request) pagination.Params {
	q := r.URL.Query()
	return pagination.FromQuery(q.Get("limit"), q.Get("cursor"))
}
