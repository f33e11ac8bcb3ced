package middleware

import (
	"crypto/subtle"
	"net/http"

	"keep_up_backend/internal/model"
	"keep_up_backend/internal/webutil"
)

// AdminKeyHeader carries the operator key for /admin routes.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards operator endpoints with a shared key. An empty
// configured key disables the admin routes entirely.
func AdminKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := GetLogger(r.Context())

			if apiKey == "" {
				logger.Warn("Admin request rejected: admin key is not configured")
				webutil.HandleError(w, logger, model.NewAppError("FORBIDDEN", "admin endpoints are disabled", "", model.ErrForbidden))
				return
			}

			given := r.Header.Get(AdminKeyHeader)
			if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
				logger.Warn("Admin request rejected: invalid key", "path", r.URL.Path)
				webutil.HandleError(w, logger, model.NewAppError("FORBIDDEN", "invalid admin key", "", model.ErrForbidden))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
