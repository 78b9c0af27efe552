package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-voice-studio/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/config"
)

// DevUserID is the identity used for every request in dev when no accounts exist.
const DevUserID = "dev"

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
// files, when non-nil, serves locally stored audio under /files.
func BuildRouter(cfg config.Config, srv *httpserver.Server, files http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	origins := ParseOrigins(cfg.CORSAllowOrigins)
	wildcard := len(origins) == 1 && origins[0] == "*"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Audio-Params", "Content-Disposition"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}))

	auth := srv.Sessions.AuthRequired
	if !cfg.AuthEnabled() && cfg.IsDev() {
		auth = httpserver.FixedUser(DevUserID)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.TimeoutMiddleware(cfg.TTSTimeout + 30*time.Second))
		v1.Get("/voices", srv.VoicesHandler())

		v1.Group(func(ar chi.Router) {
			ar.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			ar.Post("/auth/login", srv.LoginHandler())
			ar.Post("/auth/logout", srv.LogoutHandler())
		})

		v1.Group(func(pr chi.Router) {
			pr.Use(auth)
			pr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			pr.Post("/audio/generate", srv.GenerateHandler())
			pr.Post("/audio/save", srv.SaveClipHandler())
			pr.Get("/audio", srv.ListClipsHandler())
			pr.Get("/audio/{id}", srv.GetClipHandler())
			pr.Patch("/audio/{id}", srv.UpdateClipHandler())
			pr.Delete("/audio/{id}", srv.DeleteClipHandler())
			pr.Post("/categories", srv.CreateCategoryHandler())
			pr.Get("/categories", srv.ListCategoriesHandler())
		})
	})

	if files != nil {
		r.Mount("/files", http.StripPrefix("/files", files))
	}

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
