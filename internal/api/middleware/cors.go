package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

// CORS restricts cross-origin access to allowedOrigins. Paths listed in
// openPaths accept any origin. It must run before routing so preflight
// requests are answered for every route.
func CORS(allowedOrigins []string, maxAge int, openPaths ...string) func(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(allowedOrigins, "*")

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			path := strings.TrimSuffix(r.URL.Path, "/")
			if anyOrigin || slices.Contains(openPaths, path) {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         maxAge,
	})
}
