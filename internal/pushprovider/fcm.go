// Package pushprovider отправляет push-уведомления через Firebase Cloud Messaging.
// Вызовы провайдера идут через circuit breaker, чтобы при его недоступности
// рассылка не ждала таймаута на каждом пользователе.
package pushprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"

	"github.com/magabrotheeeer/affirmation-service/internal/config"
)

var (
	// ErrTokenNotRegistered — токен устройства больше не зарегистрирован у провайдера.
	ErrTokenNotRegistered = errors.New("device token is not registered")
	// ErrUnavailable — circuit breaker разомкнут, провайдер временно не вызывается.
	ErrUnavailable = errors.New("push provider unavailable")
)

// Message — push-уведомление для одного устройства.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// fcmSender — часть messaging.Client, которую использует FCMClient.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMClient отправляет сообщения через FCM.
type FCMClient struct {
	log     *slog.Logger
	sender  fcmSender
	breaker *gobreaker.CircuitBreaker[string]
	timeout time.Duration

	isUnregistered func(error) bool
}

// New инициализирует приложение Firebase и клиент FCM.
func New(ctx context.Context, log *slog.Logger, cfg config.Firebase) (*FCMClient, error) {
	const op = "pushprovider.New"
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return newWithSender(log, client, cfg.PushTimeout), nil
}

func newWithSender(log *slog.Logger, sender fcmSender, timeout time.Duration) *FCMClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &FCMClient{
		log:            log,
		sender:         sender,
		timeout:        timeout,
		isUnregistered: messaging.IsUnregistered,
	}
	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "fcm",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Отказ по конкретному токену — не признак недоступности провайдера.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrTokenNotRegistered)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return c
}

// Send отправляет уведомление и возвращает идентификатор сообщения у провайдера.
func (c *FCMClient) Send(ctx context.Context, msg Message) (string, error) {
	const op = "pushprovider.Send"
	id, err := c.execute(ctx, func(ctx context.Context) (string, error) {
		return c.sender.Send(ctx, &messaging.Message{
			Token:        msg.Token,
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
		})
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// DryRun проверяет токен устройства без фактической доставки.
func (c *FCMClient) DryRun(ctx context.Context, token string) error {
	const op = "pushprovider.DryRun"
	_, err := c.execute(ctx, func(ctx context.Context) (string, error) {
		return c.sender.SendDryRun(ctx, &messaging.Message{
			Token: token,
			Data:  map[string]string{"test": "true"},
			Android: &messaging.AndroidConfig{
				Priority: "normal",
			},
			APNS: &messaging.APNSConfig{
				Headers: map[string]string{"apns-priority": "5"},
			},
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *FCMClient) execute(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	id, err := c.breaker.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		id, err := call(ctx)
		if err != nil && c.isUnregistered(err) {
			return "", fmt.Errorf("%w: %w", ErrTokenNotRegistered, err)
		}
		return id, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return id, err
}
