// Package api wires the HTTP surface: public query routes, admin routes
// behind a JWT, operational endpoints and the static UI.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/newsroom/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/newsroom/internal/api/middleware"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/metrics"
	pkgauth "github.com/matiasleandrokruk/newsroom/pkg/auth"
)

const serviceName = "newsroom"

// Deps are the services behind the routes. Feeds, Issuer and UIDir are
// optional.
type Deps struct {
	Recommender handlers.Recommender
	Briefer     handlers.Briefer
	Comparer    handlers.Comparer
	Ingester    handlers.FileIngester
	Feeds       handlers.FeedRefresher
	Providers   handlers.ProviderHealth
	Checks      map[string]handlers.Check

	Reco        handlers.RecoDefaults
	DatasetPath string

	// Issuer protects the admin routes. Nil leaves them open, which is only
	// meant for local development.
	Issuer      *pkgauth.Issuer
	CORSOrigins []string
	// RateLimit is requests per minute per client on the LLM-backed routes.
	RateLimit int
	UIDir     string
}

// NewRouter creates the chi router with every route registered.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(apmiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.Tracing(serviceName))
	r.Use(apmiddleware.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(apmiddleware.CORS(d.CORSOrigins))

	health := handlers.NewHealthHandler(d.Checks, d.Providers)
	r.Get("/health", health.Health)
	r.Get("/health/providers", health.Providers)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	query := handlers.NewQueryHandler(d.Recommender, d.Briefer, d.Reco)
	r.Post("/recommend", query.Recommend)

	// Routes that call a language model are rate limited per client.
	r.Group(func(r chi.Router) {
		r.Use(apmiddleware.RateLimit(d.RateLimit))
		r.Post("/query", query.Query)
		r.Post("/briefing", handlers.NewBriefingHandler(d.Briefer).Brief)
		r.Post("/compare", handlers.NewCompareHandler(d.Comparer).Compare)
	})

	ingest := handlers.NewIngestHandler(d.Ingester, d.Feeds, d.DatasetPath)
	r.Group(func(r chi.Router) {
		r.Use(apmiddleware.Audit(logging.WithComponent("audit")))
		r.Use(apmiddleware.AdminAuth(d.Issuer))
		r.Post("/ingest", ingest.Ingest)
		r.Post("/feeds/refresh", ingest.RefreshFeeds)
	})

	if ui := handlers.UI("/ui/", d.UIDir); ui != nil {
		r.Get("/ui", http.RedirectHandler("/ui/", http.StatusMovedPermanently).ServeHTTP)
		r.Handle("/ui/*", ui)
	}

	return r
}
