// Package api собирает HTTP API сервиса: хранилище, кэш, брокер, платёжный шлюз,
// push-провайдер и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/affirmation-service/internal/cache"
	"github.com/magabrotheeeer/affirmation-service/internal/config"
	"github.com/magabrotheeeer/affirmation-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/jwt"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/migrations"
	"github.com/magabrotheeeer/affirmation-service/internal/paymentprovider"
	"github.com/magabrotheeeer/affirmation-service/internal/pushprovider"
	affservice "github.com/magabrotheeeer/affirmation-service/internal/services/affirmation"
	authservice "github.com/magabrotheeeer/affirmation-service/internal/services/auth"
	notifyservice "github.com/magabrotheeeer/affirmation-service/internal/services/notification"
	subservice "github.com/magabrotheeeer/affirmation-service/internal/services/subscription"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App — HTTP API.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает зависимости, применяет миграции и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	app.db = db
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		app.close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	app.cache = cacheRedis

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	app.conn = conn
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetSubscriptionQueues())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	app.ch = ch

	push, err := pushprovider.New(ctx, logger, cfg.Firebase)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to init push provider: %w", err)
	}

	services := Services{
		Auth: authservice.NewAuthService(db, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)),
		Subscription: subservice.NewSubscriptionService(
			db,
			paymentprovider.New(cfg.Stripe),
			cacheRedis,
			rabbitmq.NewPublisher(ch, rabbitmq.ExchangeSubscriptions),
			subservice.Settings{
				PriceIDs:   cfg.PriceIDs(),
				SuccessURL: cfg.SuccessURL,
				CancelURL:  cfg.CancelURL,
			},
			logger,
		),
		Notification: notifyservice.NewNotificationService(db, push, logger),
		Affirmation:  affservice.NewAffirmationService(db),
		HealthChecks: map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
		},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, services)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает HTTP до отмены ctx, затем мягко останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
