package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "signup/pkg/domain-errors"
	"signup/pkg/platform/httputil"
)

// AdminTokenHeader carries the operator token for read-back routes.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator routes. An empty expected token rejects
// every request.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AdminTokenHeader)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
