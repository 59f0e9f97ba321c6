// Package services содержит обработку событий подписки из брокера:
// по каждому событию пользователю отправляется push-уведомление.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/affirmation-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/pushprovider"
	notifyservice "github.com/magabrotheeeer/affirmation-service/internal/services/notification"
)

// UserNotifier доставляет уведомление пользователю по его UID.
type UserNotifier interface {
	SendToUser(ctx context.Context, userUID string, draft models.NotificationDraft) (*models.Notification, error)
}

// SenderService превращает события подписки в push-уведомления.
type SenderService struct {
	notifier UserNotifier
	log      *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(notifier UserNotifier, log *slog.Logger) *SenderService {
	return &SenderService{
		notifier: notifier,
		log:      log,
	}
}

// HandleSubscriptionEvent обрабатывает одно сообщение очереди. Ошибка возвращается
// только для сбоев, которые имеет смысл повторить; битые сообщения и пользователи
// без токена устройства подтверждаются.
func (s *SenderService) HandleSubscriptionEvent(ctx context.Context, body []byte) error {
	const op = "services.HandleSubscriptionEvent"
	log := s.log.With(slog.String("op", op))

	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal message body, dropping it", sl.Err(err))
		return nil
	}
	log = log.With(slog.String("user_uid", event.UserUID), slog.String("event_type", event.EventType))

	draft, ok := draftFor(event)
	if !ok {
		log.Warn("unknown subscription event type, dropping it")
		return nil
	}

	_, err := s.notifier.SendToUser(ctx, event.UserUID, draft)
	switch {
	case err == nil:
		log.Info("subscription notification sent")
		return nil
	case errors.Is(err, notifyservice.ErrNoDeviceToken),
		errors.Is(err, notifyservice.ErrUserNotFound),
		errors.Is(err, pushprovider.ErrTokenNotRegistered):
		log.Info("subscription notification skipped", sl.Err(err))
		return nil
	default:
		return err
	}
}

func draftFor(event models.SubscriptionEvent) (models.NotificationDraft, bool) {
	data := map[string]string{"plan": event.Plan, "type": event.EventType}
	if !event.EndDate.IsZero() {
		data["endDate"] = event.EndDate.Format("2006-01-02")
	}

	switch event.EventType {
	case rabbitmq.RoutingKeyActivated:
		return models.NotificationDraft{
			Title: "Subscription activated",
			Body:  "Your " + event.Plan + " premium subscription is now active.",
			Type:  models.NotificationTypeSubscription,
			Data:  data,
		}, true
	case rabbitmq.RoutingKeyCancelled:
		return models.NotificationDraft{
			Title: "Subscription cancelled",
			Body:  "Your premium subscription has been cancelled.",
			Type:  models.NotificationTypeSubscription,
			Data:  data,
		}, true
	default:
		return models.NotificationDraft{}, false
	}
}
