package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askservice/leadmarket-backend/api/controllers"
	creditcontrollers "github.com/askservice/leadmarket-backend/api/controllers/credits"
	leadcontrollers "github.com/askservice/leadmarket-backend/api/controllers/leads"
	quotecontrollers "github.com/askservice/leadmarket-backend/api/controllers/quotes"
	requestcontrollers "github.com/askservice/leadmarket-backend/api/controllers/servicerequests"
	"github.com/askservice/leadmarket-backend/api/middleware"
	"github.com/askservice/leadmarket-backend/internal/attachments"
	"github.com/askservice/leadmarket-backend/internal/categories"
	"github.com/askservice/leadmarket-backend/internal/credits"
	"github.com/askservice/leadmarket-backend/internal/leads"
	"github.com/askservice/leadmarket-backend/internal/notifications"
	"github.com/askservice/leadmarket-backend/internal/quotes"
	"github.com/askservice/leadmarket-backend/internal/requests"
	"github.com/askservice/leadmarket-backend/internal/unlocks"
	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/enums"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
	pkgredis "github.com/askservice/leadmarket-backend/pkg/redis"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Categories    categories.Service
	Requests      requests.Service
	Leads         leads.Service
	Unlocks       unlocks.Service
	Quotes        quotes.Service
	Credits       credits.Service
	Attachments   attachments.Service
	Notifications notifications.Service
}

// Infra are the shared clients used by middleware and probes.
type Infra struct {
	DB       controllers.Pinger
	Redis    *pkgredis.Client
	Registry *prometheus.Registry
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	var httpMetrics *metrics.HTTPMetrics
	if infra.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(infra.Registry)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	var (
		redisStore middleware.ResponseStore
		counters   middleware.CounterStore
	)
	if infra.Redis != nil {
		redisStore = infra.Redis
		counters = infra.Redis
	}

	vendorPolicy := middleware.NewRateLimitPolicy("vendor", cfg.RateLimit.VendorWindow, 0, cfg.RateLimit.VendorLimit)
	publicPolicy := middleware.NewRateLimitPolicy("public-requests", cfg.RateLimit.PublicWindow, cfg.RateLimit.PublicIPLimit, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(infra)))
	})
	if infra.Registry != nil {
		r.Handle("/metrics", metrics.Handler(infra.Registry))
	}

	r.Route("/api/v1/public", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(svc.Categories, logg))
		r.With(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.RateLimit(publicPolicy, counters, logg),
		).Post("/service-requests", requestcontrollers.Create(svc.Requests, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisStore, logg))

		r.Route("/customer/service-requests", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
			r.Get("/", requestcontrollers.ListMine(svc.Requests, logg))
			r.Route("/{requestId}", func(r chi.Router) {
				r.Get("/", requestcontrollers.GetMine(svc.Requests, logg))
				r.Post("/close", requestcontrollers.Close(svc.Requests, logg))
				r.Post("/cancel", requestcontrollers.Cancel(svc.Requests, logg))
				r.Get("/quotes", quotecontrollers.ListForRequest(svc.Quotes, logg))
				r.Get("/quotes/{quoteId}", quotecontrollers.Get(svc.Quotes, logg))
				r.Post("/quotes/{quoteId}/accept", quotecontrollers.Accept(svc.Quotes, logg))
				r.Post("/quotes/{quoteId}/ignore", quotecontrollers.Ignore(svc.Quotes, logg))
			})
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleVendor))
			limited := middleware.RateLimit(vendorPolicy, counters, logg)

			r.Get("/dashboard", leadcontrollers.Dashboard(svc.Leads, logg))
			r.Get("/leads", leadcontrollers.ListAvailable(svc.Leads, logg))
			r.Get("/leads/unlocked", leadcontrollers.ListUnlocked(svc.Leads, logg))
			r.Get("/leads/{leadId}", leadcontrollers.Get(svc.Leads, logg))
			r.With(limited).Post("/leads/{leadId}/unlock", leadcontrollers.Unlock(svc.Unlocks, logg))
			r.With(limited).Post("/leads/{leadId}/quotes", quotecontrollers.Submit(svc.Quotes, logg))
			r.Get("/quotes", quotecontrollers.ListMine(svc.Quotes, logg))
			r.With(limited).Post("/attachments", controllers.UploadAttachment(svc.Attachments, cfg.Media.MaxUploadBytes(), logg))

			r.Route("/credits", func(r chi.Router) {
				r.Get("/packages", creditcontrollers.ListPackages(svc.Credits, logg))
				r.Get("/balance", creditcontrollers.Balance(svc.Credits, logg))
				r.With(limited).Post("/purchase", creditcontrollers.Purchase(svc.Credits, logg))
				r.Get("/transactions", creditcontrollers.ListTransactions(svc.Credits, cfg.Leads.TransactionsMaxLimit, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Post("/service-requests/{requestId}/verify", requestcontrollers.Verify(svc.Requests, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
		})
	})

	return r
}

func readinessChecks(infra Infra) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if infra.DB != nil {
		checks["db"] = infra.DB
	}
	if infra.Redis != nil {
		checks["redis"] = infra.Redis
	}
	return checks
}
