package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/athlete-performance-be/internal/api/handlers"
	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/models"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies groups everything the router needs.
type Dependencies struct {
	DB                 Pinger
	Tokens             *auth.TokenManager
	UserService        services.UserServiceProvider
	DetailsService     services.DetailsServiceProvider
	PerformanceService services.PerformanceServiceProvider
	ReportService      services.ReportServiceProvider
	AllowedOrigins     []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.UserService)
	detailsHandler := handlers.NewDetailsHandler(deps.DetailsService)
	performanceHandler := handlers.NewPerformanceHandler(deps.PerformanceService)
	reportHandler := handlers.NewReportHandler(deps.ReportService)

	r.Get("/", handlers.Wrap(func(w http.ResponseWriter, _ *http.Request) error {
		return writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the athlete performance API"})
	}))
	r.Get("/health", handlers.Wrap(health(deps.DB)))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handlers.Wrap(userHandler.Create))
		r.Post("/login", handlers.Wrap(userHandler.Login))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", handlers.Wrap(userHandler.Create))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handlers.Wrap(userHandler.Get))
				r.Put("/", handlers.Wrap(userHandler.Update))
				r.Delete("/", handlers.Wrap(userHandler.Delete))
			})
		})

		r.Route("/details/{user_id}", func(r chi.Router) {
			r.Post("/", handlers.Wrap(detailsHandler.Create))
			r.Get("/", handlers.Wrap(detailsHandler.Get))
			r.Put("/", handlers.Wrap(detailsHandler.Update))
			r.Delete("/", handlers.Wrap(detailsHandler.Delete))
		})
	})

	r.Route("/performance/performances", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Tokens, deps.UserService, handlers.WriteError))

		r.Post("/", handlers.Wrap(performanceHandler.Create))
		r.Get("/", handlers.Wrap(performanceHandler.List))

		// Reports
		r.Get("/puissance/detail/{user_id}", handlers.Wrap(reportHandler.MaxPowerForUser))
		r.Get("/VO2max/detail/{user_id}", handlers.Wrap(reportHandler.MaxVO2ForUser))
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleCoach, handlers.WriteError))
			r.Get("/puissance/details", handlers.Wrap(reportHandler.MaxPower))
			r.Get("/VO2max/details", handlers.Wrap(reportHandler.MaxVO2))
			r.Get("/poidspuissance/details", handlers.Wrap(reportHandler.BestPowerToWeight))
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.Wrap(performanceHandler.Get))
			r.Put("/", handlers.Wrap(performanceHandler.Update))
			r.Delete("/", handlers.Wrap(performanceHandler.Delete))
		})
	})

	return r
}

func health(db Pinger) handlers.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			return writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
