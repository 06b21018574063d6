package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nestdesk/stager/internal/middleware/metrics"
	"github.com/nestdesk/stager/internal/setup"
)

// New wires all routes. Rate limiting applies only to the file-receiving
// endpoints; metadata mutations are cheap and stay unlimited.
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/v1/{tenant}", func(r chi.Router) {
		r.Post("/sessions", h.OpenSession)

		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)

			r.With(deps.UploadLimiter.Handler).Post("/images", h.AddImages)
			r.Put("/images/{asset}/position", h.MoveImage)
			r.Put("/images/{asset}/main", h.SetMainImage)
			r.Put("/images/{asset}/meta", h.SetImageMeta)
			r.Delete("/images/{asset}", h.RemoveImage)

			r.With(deps.UploadLimiter.Handler).Post("/documents", h.AddDocument)
			r.Delete("/documents/{asset}", h.RemoveDocument)

			r.Get("/previews/{handle}", h.GetPreview)

			r.Post("/save", h.Save)
		})
	})

	return r
}
