package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cnstrctnetwork/cnstrct/internal/auth"
	"github.com/cnstrctnetwork/cnstrct/internal/http/billing"
	"github.com/cnstrctnetwork/cnstrct/internal/http/dashboard"
	"github.com/cnstrctnetwork/cnstrct/internal/http/migrate"
	"github.com/cnstrctnetwork/cnstrct/internal/http/notification"
	"github.com/cnstrctnetwork/cnstrct/internal/http/project"
	"github.com/cnstrctnetwork/cnstrct/internal/metrics"
)

type Options struct {
	AllowedOrigins []string
	// Uploads serves locally stored documents under /uploads when set.
	Uploads http.FileSystem
}

func New(
	verifier *auth.Verifier,
	projectH *project.Handler,
	dashboardV1 *dashboard.Handler,
	billingH *billing.Handler,
	emailH *notification.Handler,
	migrateH *migrate.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature"},
		MaxAge:         300,
	}))

	router.Handle("/metrics", promhttp.Handler())

	if opts.Uploads != nil {
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(opts.Uploads)))
	}

	router.Route("/dashboard/actions", func(r chi.Router) {
		r.Use(verifier.RequireRedirect)
		projectH.Routes(r)
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/webhooks/stripe", billingH.Routes)

		r.Group(func(r chi.Router) {
			r.Use(verifier.RequireJSON)
			r.Use(middleware.AllowContentType("application/json"))

			r.Route("/email", emailH.Routes)
			migrateH.Routes(r)
		})

		r.Route("/v1", func(r chi.Router) {
			r.Use(verifier.RequireJSON)
			dashboardV1.Routes(r)
		})
	})

	return router
}
