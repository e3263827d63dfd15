package router

import (
	"net/http"

	"github.com/readtrack/readtrack/internal/config"
	"github.com/readtrack/readtrack/internal/handler"
	"github.com/readtrack/readtrack/internal/middleware"
)

// New creates and configures the HTTP router. tokens may be nil, in which case
// write and admin routes are not authenticated.
func New(h *handler.Handler, mw *middleware.Middleware, cfg *config.Config, tokens middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	mux.HandleFunc("GET /api/v1/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ReadTrack API v1","version":"` + handler.Version + `"}`))
	})

	authMw := passThrough
	adminMw := passThrough
	if tokens != nil {
		authMw = mw.Auth(tokens)
		requireAdmin := mw.RequireRole(middleware.RoleAdmin)
		adminMw = func(next http.Handler) http.Handler { return authMw(requireAdmin(next)) }
	}

	writeRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "write",
		Limit:  cfg.Security.RateLimiting.DefaultLimit,
		Window: cfg.Security.RateLimiting.DefaultWindow,
		KeyFn:  middleware.SubjectKeyFn,
	})

	// Book routes
	mux.HandleFunc("GET /api/v1/books", h.ListBooks)
	mux.HandleFunc("GET /api/v1/books/{id}", h.GetBook)
	mux.Handle("POST /api/v1/books", authMw(writeRateLimit(http.HandlerFunc(h.CreateBook))))
	mux.Handle("DELETE /api/v1/books/{id}", authMw(writeRateLimit(http.HandlerFunc(h.DeleteBook))))

	// Admin routes
	mux.Handle("DELETE /api/v1/admin/books/{id}", adminMw(writeRateLimit(http.HandlerFunc(h.PurgeBook))))

	// Apply middleware stack
	var handler http.Handler = mux

	// Security headers
	handler = mw.SecurityHeaders(handler)

	// Request logging
	handler = mw.Logger(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}

func passThrough(next http.Handler) http.Handler {
	return next
}
