package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	appmw "server/internal/middleware"
)

// NewRouter assembles the HTTP surface: the public widget endpoints, the
// Shopify webhook receiver, and the app-proxy-signed admin endpoints.
func NewRouter(app *handlers.App, countryLookup appmw.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		appmw.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)

	// Widget-facing endpoints. CORS is scoped here so webhook and admin
	// routes never answer preflights.
	r.Group(func(r chi.Router) {
		r.Use(appmw.CORS(app.Config.WidgetOrigins))
		r.Use(appmw.RateLimit(app.Config.RateLimitPerMin, time.Minute))
		r.Use(appmw.I18N(app.Config.DefaultLocale, countryLookup))

		r.Post("/api/fashion-photo", app.FashionPhotoSubmit)
		r.Get("/api/fashion-photo/status/{job_id}", app.FashionPhotoStatus)
		r.Post("/api/pixel/events", app.PixelEvents)
	})

	r.Post("/api/webhooks/shopify", app.ShopifyWebhook)

	// Admin endpoints reached through the Shopify app proxy; the proxy
	// signature doubles as authentication.
	r.Group(func(r chi.Router) {
		r.Use(appmw.ProxyAuth(app.Config.ShopifyAPISecret))

		r.Get("/api/credits", app.Credits)
		r.Get("/api/stats/dashboard", app.StatsDashboard)
		r.Get("/api/admin/export", app.AdminExport)
	})

	if base := app.Store.BasePath(); base != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(base)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
