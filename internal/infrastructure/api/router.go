package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// WebhookPath is where every platform subscription delivers
const WebhookPath = "/webhooks/shopify"

// RouterConfig holds the handlers mounted on the HTTP router
type RouterConfig struct {
	Webhooks    http.Handler
	Admin       *AdminHandler
	Metrics     http.Handler
	SwaggerFile string
	Logger      zerolog.Logger
}

// NewRouter builds the HTTP surface of the service
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	// Swagger documentation
	if cfg.SwaggerFile != "" {
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, cfg.SwaggerFile)
		})
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	if cfg.Webhooks != nil {
		r.Method(http.MethodPost, WebhookPath, cfg.Webhooks)
	}

	if cfg.Admin != nil {
		r.Route("/api/v1", cfg.Admin.Routes)
	}

	return r
}
