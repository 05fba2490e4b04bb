package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/gridbridge/internal/http/errors"
)

// RequireAPIKey valida X-Admin-API-Key contra la key configurada.
// Con key vacía el surface de admin queda deshabilitado (403 siempre).
func RequireAPIKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get("X-Admin-API-Key"))
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
