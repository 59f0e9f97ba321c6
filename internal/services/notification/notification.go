// Package services отвечает за доставку push-уведомлений пользователям,
// хранение их истории и управление токенами устройств.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/magabrotheeeer/affirmation-service/internal/lib/metrics"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/pushprovider"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

var (
	ErrNoDeviceToken         = errors.New("user has no device token")
	ErrTokenRequired         = errors.New("device token is required")
	ErrInvalidDeviceToken    = errors.New("invalid device token")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrInvalidPaginationArgs = errors.New("page and limit must be positive")
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	// maxOffset ограничивает смещение, чтобы (page-1)*limit не переполнялось.
	maxOffset = math.MaxInt32
)

// Repository определяет методы хранилища, нужные сервису уведомлений.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	SetDeviceToken(ctx context.Context, userUID, token string) error
	ClearDeviceToken(ctx context.Context, userUID string) error
	CreateNotification(ctx context.Context, n models.Notification) (int, error)
	ListNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, int, error)
	MarkNotificationRead(ctx context.Context, id int, userUID string) error
}

// PushClient описывает провайдера push-уведомлений.
type PushClient interface {
	Send(ctx context.Context, msg pushprovider.Message) (string, error)
	DryRun(ctx context.Context, token string) error
}

// NotificationService доставляет уведомления и ведёт их историю.
type NotificationService struct {
	repo Repository
	push PushClient
	log  *slog.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(repo Repository, push PushClient, log *slog.Logger) *NotificationService {
	return &NotificationService{
		repo: repo,
		push: push,
		log:  log,
	}
}

// Deliver отправляет уведомление на устройство пользователя и сохраняет запись о нём.
// Если провайдер сообщил, что токен больше не зарегистрирован, токен удаляется.
func (s *NotificationService) Deliver(ctx context.Context, user *models.User, draft models.NotificationDraft) (*models.Notification, error) {
	const op = "services.Deliver"
	if !user.HasDeviceToken() {
		return nil, ErrNoDeviceToken
	}
	log := s.log.With(slog.String("op", op), slog.String("user_uid", user.UUID))

	_, err := s.push.Send(ctx, pushprovider.Message{
		Token: *user.FCMToken,
		Title: draft.Title,
		Body:  draft.Body,
		Data:  draft.Data,
	})
	if err != nil {
		if errors.Is(err, pushprovider.ErrTokenNotRegistered) {
			metrics.RecordPushDelivery(draft.Type, metrics.ResultInvalid)
			log.Info("device token is no longer registered, clearing it")
			if clearErr := s.repo.ClearDeviceToken(ctx, user.UUID); clearErr != nil {
				log.Error("failed to clear device token", sl.Err(clearErr))
			}
		} else {
			metrics.RecordPushDelivery(draft.Type, metrics.ResultError)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordPushDelivery(draft.Type, metrics.ResultOK)

	n := models.Notification{
		UserUID: user.UUID,
		Title:   draft.Title,
		Body:    draft.Body,
		Type:    draft.Type,
		Data:    draft.Data,
	}
	id, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n.ID = id
	return &n, nil
}

// SendToUser загружает пользователя и доставляет ему уведомление.
func (s *NotificationService) SendToUser(ctx context.Context, userUID string, draft models.NotificationDraft) (*models.Notification, error) {
	const op = "services.SendToUser"
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Deliver(ctx, user, draft)
}

// RegisterToken проверяет токен пробной отправкой и сохраняет его.
// Отклоняется только токен, который провайдер явно не признаёт; прочие ошибки
// проверки не мешают сохранению.
func (s *NotificationService) RegisterToken(ctx context.Context, userUID, token string) error {
	const op = "services.RegisterToken"
	if token == "" {
		return ErrTokenRequired
	}
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	if err := s.push.DryRun(ctx, token); err != nil {
		if errors.Is(err, pushprovider.ErrTokenNotRegistered) {
			log.Info("device token rejected by push provider")
			return ErrInvalidDeviceToken
		}
		log.Warn("device token validation failed, saving anyway", sl.Err(err))
	}

	if err := s.repo.SetDeviceToken(ctx, userUID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("device token registered")
	return nil
}

// RemoveToken удаляет токен устройства пользователя.
func (s *NotificationService) RemoveToken(ctx context.Context, userUID string) error {
	const op = "services.RemoveToken"
	if err := s.repo.ClearDeviceToken(ctx, userUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// List возвращает страницу уведомлений пользователя. Нумерация страниц с единицы,
// limit по умолчанию 20 и не больше 100.
func (s *NotificationService) List(ctx context.Context, userUID string, page, limit int) (*models.NotificationPage, error) {
	const op = "services.ListNotifications"
	if page < 0 || limit < 0 {
		return nil, ErrInvalidPaginationArgs
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	limit = min(limit, maxPageLimit)
	if page-1 > maxOffset/limit {
		return nil, fmt.Errorf("%w: page %d is out of range", ErrInvalidPaginationArgs, page)
	}

	items, total, err := s.repo.ListNotifications(ctx, userUID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.NotificationPage{
		Notifications: items,
		Pagination: models.Pagination{
			Total: total,
			Page:  page,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// MarkRead помечает уведомление прочитанным. Чужое уведомление считается ненайденным.
func (s *NotificationService) MarkRead(ctx context.Context, id int, userUID string) error {
	const op = "services.MarkRead"
	if err := s.repo.MarkNotificationRead(ctx, id, userUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
