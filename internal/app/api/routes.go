package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/affirmation-service/internal/config"
	affcreate "github.com/magabrotheeeer/affirmation-service/internal/http/handlers/affirmation/create"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/affirmation/historycomplete"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/affirmation/historylist"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/affirmation/historyrecord"
	afflist "github.com/magabrotheeeer/affirmation-service/internal/http/handlers/affirmation/list"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/health"
	notifylist "github.com/magabrotheeeer/affirmation-service/internal/http/handlers/notification/list"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/notification/read"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/notification/tokenregister"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/notification/tokenremove"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/adminlist"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/checkout"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/plans"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/verify"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/subscription/webhook"
	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	affservice "github.com/magabrotheeeer/affirmation-service/internal/services/affirmation"
	authservice "github.com/magabrotheeeer/affirmation-service/internal/services/auth"
	notifyservice "github.com/magabrotheeeer/affirmation-service/internal/services/notification"
	subservice "github.com/magabrotheeeer/affirmation-service/internal/services/subscription"

	// Регистрация swagger-спецификации для /docs.
	_ "github.com/magabrotheeeer/affirmation-service/docs"
)

// Services — сервисы, которые обслуживают HTTP-маршруты.
type Services struct {
	Auth         *authservice.AuthService
	Subscription *subservice.SubscriptionService
	Notification *notifyservice.NotificationService
	Affirmation  *affservice.AffirmationService
	HealthChecks map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer, svc Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimitRPS, cfg.RateLimitBurst))
			r.Post("/auth/register", register.New(logger, svc.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, svc.Auth).ServeHTTP)
		})

		r.Get("/subscription/plans", plans.New(svc.Subscription).ServeHTTP)
		// Вебхук подписан шлюзом, JWT не нужен.
		r.Post("/subscription/webhook", webhook.New(logger, svc.Subscription).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))

			r.Post("/subscription/create-checkout-session", checkout.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/subscription/status", status.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/subscription/cancel", cancel.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/subscription/verify-payment", verify.New(logger, svc.Subscription, cfg.AuthzErrorStatus).ServeHTTP)

			r.Post("/notifications/token", tokenregister.New(logger, svc.Notification).ServeHTTP)
			r.Post("/notifications/token/remove", tokenremove.New(logger, svc.Notification).ServeHTTP)
			r.Get("/notifications", notifylist.New(logger, svc.Notification).ServeHTTP)
			r.Put("/notifications/{id}/read", read.New(logger, svc.Notification).ServeHTTP)

			r.Post("/affirmations", affcreate.New(logger, svc.Affirmation).ServeHTTP)
			r.Get("/affirmations", afflist.New(logger, svc.Affirmation).ServeHTTP)
			r.Get("/affirmations/history", historylist.New(logger, svc.Affirmation).ServeHTTP)
			r.Post("/affirmations/{id}/history", historyrecord.New(logger, svc.Affirmation).ServeHTTP)
			r.Put("/affirmations/history/{id}/complete", historycomplete.New(logger, svc.Affirmation, cfg.AuthzErrorStatus).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger, cfg.AuthzErrorStatus))
				r.Get("/admin/subscriptions", adminlist.New(logger, svc.Subscription).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, svc.HealthChecks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
