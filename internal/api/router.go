package api

import (
	"content-targeting-engine/internal/observability"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Router(h *TargetingHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rules/evaluate", h.EvaluateRule)
		r.Post("/rules/match", h.MatchRules)
		r.Post("/banners/match", h.MatchBanners)
		r.Post("/plays/match", h.MatchPlays)
		r.Post("/recommendations", h.Recommendations)
		r.Post("/recommendations/evaluate", h.EvaluateRecommendations)
		r.Post("/glossary/cache", h.BuildTermMap)
		r.Get("/glossary/terms", h.ListTerms)
		r.Get("/glossary/terms/{term}", h.LookupTerm)
		r.Post("/glossary/scan", h.ScanTerms)
		r.Get("/snapshot", h.Snapshot)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
