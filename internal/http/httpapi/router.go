package httpapi

import (
	"net/http"

	"visage/internal/http/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/analyses", func(r chi.Router) {
		r.Post("/", app.AnalysesCreate)
		r.Get("/{id}", app.AnalysisStatus)
		r.Get("/{id}/artifacts", app.AnalysisArtifacts)
	})
	r.Post("/v1/users/{id}/credits", app.CreditsGrant)
	r.Get("/v1/users/{id}/credits", app.CreditsBalance)
	r.Post("/v1/funnel/broadcast", app.FunnelBroadcast)
	r.Post("/v1/prompts", app.PromptsUpsert)
	r.Get("/v1/prompts/{key}", app.PromptGet)

	return r
}
