package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"

	"github.com/frahmantamala/mollie-checkout/api"
	"github.com/frahmantamala/mollie-checkout/internal/auth"
	"github.com/frahmantamala/mollie-checkout/internal/payment"
	"github.com/frahmantamala/mollie-checkout/internal/transport/middleware"
	"github.com/frahmantamala/mollie-checkout/internal/transport/swagger"
)

type Handlers struct {
	Health  *HealthHandler
	Auth    *auth.Handler
	Payment *payment.Handler
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

type Options struct {
	AllowedOrigins   []string
	WebhookRateLimit float64
	WebhookBurst     int
}

func NewRouter(h Handlers, opts Options, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID(logger))
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if h.Metrics != nil {
		router.Handle(h.MetricsPath, h.Metrics)
	}

	// Mount API under /api/v1 to match OpenAPI server url
	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Payment == nil {
			return
		}

		// Gateway callbacks are unauthenticated and throttled per client
		limiter := middleware.NewRateLimiter(opts.WebhookRateLimit, opts.WebhookBurst)
		r.With(limiter.Middleware()).Post("/payments/{driver}/webhook", h.Payment.HandleWebhook)

		r.Group(func(pr chi.Router) {
			if h.Auth != nil {
				pr.Use(h.Auth.AuthMiddleware)
			}
			pr.Post("/carts/{cartID}/payment-intents", h.Payment.CreateIntent)
			pr.Get("/payment-intents/{paymentID}", h.Payment.GetIntent)
		})
	})

	return router
}
