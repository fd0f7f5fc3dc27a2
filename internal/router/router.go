package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FACorreiaa/alpine-guide/internal/api/chat"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ChatHandler    chat.Handler
	AllowedOrigins []string
}

// SetupRouter builds the API routes. Server-wide middleware (request id,
// logger, recoverer) is applied by the caller before mounting.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/health", cfg.ChatHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Delete("/chat/sessions/{sessionID}", cfg.ChatHandler.ResetSession)
		r.Get("/territories/{territory}/config", cfg.ChatHandler.TerritoryConfig)

		r.Route("/cache", func(r chi.Router) {
			r.Delete("/", cfg.ChatHandler.ClearCache)
			r.Get("/stats", cfg.ChatHandler.CacheStats)
		})
	})

	return r
}
