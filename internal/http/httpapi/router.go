package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront/internal/http/handlers"
	"storefront/internal/middleware"
)

// Options configures the middleware around the API routes.
type Options struct {
	Logger      zerolog.Logger
	CORSOrigins []string
	JWTSecret   string
	Throttle    *middleware.ThrottleStore
	Country     middleware.CountryLookup

	// StaticDir, when set, is served under /static for the filesystem store.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.Metrics,
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/api", func(r chi.Router) {
		if opts.Throttle != nil {
			r.Use(middleware.RateLimit(opts.Throttle))
		}
		r.Use(
			middleware.I18N(middleware.StorefrontLocales, opts.Country),
			middleware.AuthJWT(opts.JWTSecret),
		)

		r.Post("/imagine", app.Imagine)
		r.Post("/enhance-prompt", app.EnhancePrompt)
		r.Post("/download-image", app.DownloadImage)
		r.Post("/compose", app.Compose)

		r.Route("/woocommerce/orders", func(r chi.Router) {
			r.Get("/by-email", app.OrdersByEmail)
			r.Get("/{id}", app.GetOrder)
			r.Post("/", app.CreateOrder)
		})

		r.Route("/designs", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/", app.ListDesigns)
			r.Post("/", app.SaveDesign)
		})
	})

	return r
}
