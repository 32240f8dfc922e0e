package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the HTTP router. An empty allowedOrigins list allows any
// origin.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/fighters", h.ListFighters)
		r.Get("/fighters/{name}", h.GetFighter)

		r.Post("/predict", h.Predict)
		r.Post("/simulate", h.Simulate)
		r.Post("/events/{eventId}/predict", h.PredictEvent)

		r.Get("/model-performance", h.GetModelPerformance)
		r.Get("/model-performance/detailed", h.GetDetailedPerformance)
		r.Post("/fight-results", h.RecordFightResult)

		r.Post("/model/reload", h.ReloadModel)
		r.Post("/system/install", h.InstallDatabase)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", h.SchedulerStatus)
			r.Post("/pause", h.PauseScheduler)
			r.Post("/resume", h.ResumeScheduler)
			r.Post("/jobs/{jobId}/run", h.RunSchedulerJob)
		})
	})

	return r
}
