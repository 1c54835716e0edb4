package http

import (
	nethttp "net/http"

	"github.com/go-chi/cors"
)

// CORS wraps the engine for the browser frontend. Credentials are only
// allowed for an explicit origin list; with none configured any origin
// may call the API but cookies and auth headers are not shared.
func CORS(allowedOrigins []string) func(nethttp.Handler) nethttp.Handler {
	opts := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         600,
	}
	if len(allowedOrigins) > 0 {
		opts.AllowedOrigins = allowedOrigins
		opts.AllowCredentials = true
	}
	return cors.Handler(opts)
}
