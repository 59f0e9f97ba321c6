// Package sender запускает потребителя событий подписки, который превращает их в push-уведомления.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/affirmation-service/internal/config"
	"github.com/magabrotheeeer/affirmation-service/internal/grpc/health"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/pushprovider"
	notifyservice "github.com/magabrotheeeer/affirmation-service/internal/services/notification"
	senderservice "github.com/magabrotheeeer/affirmation-service/internal/services/sender"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

const serviceName = "sender"

// App представляет приложение отправителя.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *repository.Storage
	health        *health.Server
	consumer      *rabbitmq.Consumer
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New создает новый экземпляр приложения отправителя.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetSubscriptionQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	app := &App{
		conn:     conn,
		ch:       ch,
		db:       db,
		consumer: rabbitmq.NewConsumer(ch, logger, cfg.RabbitMQRequeueDelay),
		logger:   logger,
	}

	push, err := pushprovider.New(ctx, logger, cfg.Firebase)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to init push provider: %w", err)
	}

	hs, err := health.New(cfg.SenderHealthAddress, serviceName, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to start health server: %w", err)
	}
	app.health = hs

	notifier := notifyservice.NewNotificationService(db, push, logger)
	app.senderService = senderservice.NewSenderService(notifier, logger)
	return app, nil
}

// Run запускает потребителей очередей и работает до отмены ctx. Соединения
// закрываются только после завершения начатых обработчиков.
func (a *App) Run(ctx context.Context) error {
	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()

	for _, q := range rabbitmq.GetSubscriptionQueues() {
		if err := a.consumer.Consume(consumeCtx, q.QueueName, a.senderService.HandleSubscriptionEvent); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			stopConsuming()
			a.consumer.Wait()
			a.close()
			return err
		}
		a.logger.Info("consumer started", slog.String("queue", q.QueueName))
	}

	healthErr := make(chan error, 1)
	go func() { healthErr <- a.health.Run(ctx) }()
	a.health.SetServing(true)

	var err error
	select {
	case <-ctx.Done():
	case err = <-healthErr:
	}

	a.logger.Info("sender service shutting down gracefully")
	a.health.SetServing(false)
	stopConsuming()
	a.consumer.Wait()
	a.close()
	return err
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
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
