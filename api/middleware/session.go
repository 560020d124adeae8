package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/delicado-shop/delicado-api/api/responses"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

const sessionHeader = "X-Session-Id"

// SessionID resolves the anonymous visitor session that keys cart and wizard
// state. A missing header mints a new id and echoes it back so the client can
// keep it; a malformed one is rejected.
func SessionID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(sessionHeader))
			if raw == "" {
				raw = uuid.NewString()
			} else if _, err := uuid.Parse(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id must be a UUID"))
				return
			}
			w.Header().Set(sessionHeader, raw)

			ctx := WithSessionID(r.Context(), raw)
			if logg != nil {
				ctx = logg.WithField(ctx, "session_id", raw)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
