package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// CORS returns a middleware that allows cross-origin reads from any origin.
// Every route the service exposes is a safe read, so only GET, HEAD and
// OPTIONS are advertised.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			chimiddleware.RequestIDHeader,
			traceparentHeader,
		},
		ExposedHeaders: []string{chimiddleware.RequestIDHeader},
		MaxAge:         300,
	})
}
