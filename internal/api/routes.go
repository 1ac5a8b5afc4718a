package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Burst of 100 deletes, then a sustained 10/second
	deleteRateLimiter := NewDeleteRateLimiter(100, 100*time.Millisecond)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes
		r.Group(func(r chi.Router) {
			if h.apiKey != "" {
				r.Use(AuthMiddleware(h.apiKey, h.profileID))
			} else {
				r.Use(DevAuthMiddleware(h.profileID))
			}

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.ListClients)
				r.Post("/", h.CreateClient)
				r.Get("/{id}", h.GetClient)
				r.Patch("/{id}", h.UpdateClient)
				r.With(deleteRateLimiter.Middleware).Delete("/{id}", h.DeleteClient)
				r.Post("/{id}/convert", h.ConvertClient)
			})

			r.Route("/closed-clients", func(r chi.Router) {
				r.Get("/", h.ListClosedProjects)
				r.Patch("/{id}", h.UpdateClosedProject)
				r.With(deleteRateLimiter.Middleware).Delete("/{id}", h.DeleteClosedProject)
			})

			r.Route("/site-types", func(r chi.Router) {
				r.Get("/", h.ListSiteTypes)
				r.Post("/", h.CreateSiteType)
				r.Patch("/{id}", h.UpdateSiteType)
				r.With(deleteRateLimiter.Middleware).Delete("/{id}", h.DeleteSiteType)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/dashboard", h.Dashboard)
				r.Get("/monthly", h.MonthlyReport)
				r.Get("/site-types", h.SiteTypeReport)
			})

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/profile/logo", h.UploadLogo)

			r.Get("/activity", h.Activity)
			r.Get("/backup", h.Backup)
		})
	})

	return r
}
