package http

import (
	"net/http"

	"github.com/go-chi/cors"
)

// corsMiddleware answers preflight requests and sets CORS headers for allowed origins.
// Requests from other origins pass through without CORS headers.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		MaxAge:         86400,
	})
}
