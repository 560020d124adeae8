package middleware

import (
	"net/http"

	"github.com/delicado-shop/delicado-api/api/responses"
	pkgauth "github.com/delicado-shop/delicado-api/pkg/auth"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

// RequirePermission must run after Auth. Anonymous callers get 401, callers
// without perm get 403.
func RequirePermission(perm pkgauth.Permission, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !principal.Can(perm) {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "permission", string(perm))
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
