package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subburn/backend/internal/api/handlers"
	"github.com/subburn/backend/internal/api/middleware"
	"github.com/subburn/backend/internal/auth"
	"github.com/subburn/backend/internal/config"
	"github.com/subburn/backend/internal/db"
	"github.com/subburn/backend/internal/job"
	"github.com/subburn/backend/internal/storage"
)

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config, jobQueue *job.Queue, store *storage.Store) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	uploadHandler := handlers.NewUploadHandler(store)
	jobHandler := handlers.NewJobHandler(jobQueue, store)
	settingsHandler := handlers.NewSettingsHandler(database)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		// Auth (public, rate-limited)
		r.With(loginLimiter.Handler, middleware.MaxBodySize(4<<10)).
			Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Uploads
			r.Post("/uploads", uploadHandler.Upload)
			r.Get("/uploads/{id}/thumbnail", uploadHandler.Thumbnail)
			r.Delete("/uploads/{id}", uploadHandler.Delete)

			// Burn jobs
			r.With(middleware.MaxBodySize(64 << 10)).Post("/burn", jobHandler.Enqueue)
			r.Get("/jobs", jobHandler.List)
			r.Get("/jobs/active", jobHandler.Active)
			r.Get("/jobs/{id}", jobHandler.Get)
			r.Delete("/jobs/{id}", jobHandler.Cancel)
			r.Post("/jobs/{id}/retry", jobHandler.Retry)
			r.Get("/jobs/{id}/download", jobHandler.Download)

			// Settings
			r.Get("/settings", settingsHandler.GetSettings)
			r.With(middleware.RequireRole("admin")).Put("/settings", settingsHandler.UpdateSettings)
		})
	})

	return r
}
