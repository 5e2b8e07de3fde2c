package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hass/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Home Assistant admin routes
	r.Route("/"+s.cfg.Namespace, func(r chi.Router) {
		// Discovery needs no server and no permission.
		r.Get("/discover", s.handleDiscover)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requirePermission(auth.PermServerRead))

			r.Get("/version/{id}", s.handleVersion)

			r.Group(func(r chi.Router) {
				r.Use(s.noCacheMiddleware)

				for path, h := range map[string]http.HandlerFunc{
					"/entities":   s.handleEntities,
					"/states":     s.handleStates,
					"/services":   s.handleServices,
					"/properties": s.handleProperties,
					"/tags":       s.handleTags,
				} {
					r.Get(path, h)
					r.Get(path+"/{id}", h)
				}
			})
		})
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.requirePermission(auth.PermSystemRead)).Get("/system", s.handleSystem)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
