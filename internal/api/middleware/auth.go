// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/quantkit/helix/internal/api/response"
	"github.com/quantkit/helix/internal/core"
)

// APIKeyAuth returns middleware that checks the X-API-Key header with a
// constant-time compare. An empty configured key disables the check, so
// local runs need no credentials. A missing header takes the same
// comparison path as a wrong one.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.Error(w, http.StatusUnauthorized,
					core.WrapError(core.ErrUnauthorized, nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
