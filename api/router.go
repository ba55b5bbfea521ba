package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpSwagger "github.com/swaggo/http-swagger"
)

// routes wires middlewares and endpoints. CORS origins come from CORS_ORIGINS.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", a.metrics.Handler())

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write(openapiYAML)
	})

	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Post("/session", a.handleCreateSession)

		api.Route("/fields", func(fr chi.Router) {
			fr.Get("/", a.handleListFields)
			fr.Post("/", a.handleCreateField)
			fr.Get("/{id}", a.handleGetField)
			fr.Delete("/{id}", a.handleDeleteField)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(a.sessionMiddleware)
			pr.Delete("/session", a.handleEndSession)
			pr.Post("/session/events", a.handleEvent)
			pr.Post("/session/clear", a.handleClear)
			pr.Get("/session/view", a.handleView)
			pr.Post("/session/analyze", a.handleAnalyze)
			pr.Post("/session/baseline", a.handleBaseline)
			pr.Get("/session/current", a.handleCurrent)
			pr.Post("/session/timeseries", a.handleTimeseries)
			pr.Post("/session/fields", a.handleSaveSelection)
			pr.Get("/session/runs", a.handleRuns)
		})
	})

	return r
}
