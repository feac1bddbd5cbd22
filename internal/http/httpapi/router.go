package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/http/handlers"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger, cfg *infra.Config, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	// Generation endpoints hold a provider call open per request, so they
	// carry a per-IP limit the read endpoints do not.
	generate := passthrough
	if cfg.GenRateLimit > 0 {
		generate = middleware.RateLimit(cfg.GenRateLimit, time.Minute)
	}

	r.Route("/v1/episodes/{episode_id}", func(r chi.Router) {
		r.With(generate).Post("/storyboard", app.StoryboardGenerate)
		r.Get("/storyboard", app.StoryboardGet)
	})

	r.With(generate).Post("/v1/cast-images", app.CastGenerate)

	r.Route("/v1/projects/{project_id}", func(r chi.Router) {
		r.With(generate).Post("/panels", app.PanelsGenerate)
		r.Get("/panels.zip", app.PanelsDownload)
		r.Get("/scenes", app.ScenesList)
	})

	r.Put("/v1/integrations/{provider}/token", app.TokenUpsert)

	// Stored panels and clips are served straight off the blob root.
	if staticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
