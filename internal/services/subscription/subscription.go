// Package services содержит управление жизненным циклом подписки: создание сессии
// оплаты, сверку по вебхукам платёжного шлюза, отмену и проверку статуса.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/affirmation-service/internal/cache"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/paymentprovider"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

var (
	ErrInvalidPlanType       = errors.New(`invalid plan type, must be "monthly" or "yearly"`)
	ErrUserNotFound          = errors.New("user not found")
	ErrNoSubscriptionFound   = errors.New("no subscription found")
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload = errors.New("webhook payload is missing required data")
	ErrSessionIDRequired     = errors.New("session ID is required")
	ErrPaymentNotVerified    = errors.New("payment verification failed")
	ErrSessionOwnerMismatch  = errors.New("checkout session belongs to another user")
)

const (
	defaultPeriod     = 30 * 24 * time.Hour
	subscriptionTTL   = 10 * time.Minute
	checkoutTTL       = 24 * time.Hour
	metadataUserID    = "userId"
	metadataPlanType  = "planType"
	cancelledResponse = "Subscription cancelled successfully"
)

// SubscriptionRepository определяет методы хранилища, нужные сервису.
type SubscriptionRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	DeactivateSubscription(ctx context.Context, userUID string) error
	ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, int, error)
}

// PaymentGateway описывает операции платёжного шлюза.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*paymentprovider.CheckoutSession, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	ConstructEvent(payload []byte, signature string) (*paymentprovider.Event, error)
}

// Cache описывает методы для кэширования данных. Invalidate должна менять версию
// ключа, чтобы SetIfVersion не записал значение, прочитанное до изменения.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Version(ctx context.Context, key string) (string, error)
	SetIfVersion(ctx context.Context, key, version string, value any, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует события подписки в брокер.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Settings — статическая конфигурация сервиса.
type Settings struct {
	PriceIDs   map[string]string
	SuccessURL string
	CancelURL  string
}

// SubscriptionService реализует жизненный цикл подписки.
type SubscriptionService struct {
	repo      SubscriptionRepository
	gateway   PaymentGateway
	cache     Cache
	publisher EventPublisher
	settings  Settings
	log       *slog.Logger
	now       func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, gateway PaymentGateway, cache Cache,
	publisher EventPublisher, settings Settings, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		gateway:   gateway,
		cache:     cache,
		publisher: publisher,
		settings:  settings,
		log:       log,
		now:       time.Now,
	}
}

func validPlan(planType string) bool {
	return planType == models.PlanMonthly || planType == models.PlanYearly
}

// CreateCheckoutSession создаёт у шлюза сессию оплаты тарифа planType для пользователя.
// Подписка в хранилище не меняется до прихода вебхука, в кэше остаётся только
// отметка о начатой оплате на время жизни сессии.
func (s *SubscriptionService) CreateCheckoutSession(ctx context.Context, userUID, planType string) (*models.CheckoutSession, error) {
	const op = "services.CreateCheckoutSession"
	if !validPlan(planType) {
		return nil, ErrInvalidPlanType
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	priceID := s.settings.PriceIDs[planType]
	if priceID == "" {
		return nil, fmt.Errorf("%s: no price configured for plan %q", op, planType)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, paymentprovider.CheckoutRequest{
		PriceID:       priceID,
		CustomerEmail: user.Email,
		SuccessURL:    s.settings.SuccessURL,
		CancelURL:     s.settings.CancelURL,
		Metadata: map[string]string{
			metadataUserID:   userUID,
			metadataPlanType: planType,
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(ctx, cache.CheckoutKey(userUID), session.ID, checkoutTTL); err != nil {
		s.log.Warn("failed to mark checkout as pending", slog.String("user_uid", userUID), sl.Err(err))
	}

	s.log.Info("checkout session created",
		slog.String("user_uid", userUID),
		slog.String("plan", planType),
		slog.String("session_id", session.ID))
	return &models.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// GetUserSubscription возвращает подписку пользователя с вычисленными флагом
// активности и состоянием.
func (s *SubscriptionService) GetUserSubscription(ctx context.Context, userUID string) (*models.SubscriptionStatus, error) {
	const op = "services.GetUserSubscription"

	sub, err := s.loadSubscription(ctx, userUID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	state := sub.State(now, false)
	if state == models.StateNone || state == models.StateLapsed {
		state = sub.State(now, s.checkoutPending(ctx, userUID))
	}

	if sub == nil {
		return &models.SubscriptionStatus{HasSubscription: false, State: state, Subscription: nil}, nil
	}
	view := *sub
	view.IsActive = sub.IsEffectivelyActive(now)
	return &models.SubscriptionStatus{HasSubscription: true, State: state, Subscription: &view}, nil
}

func (s *SubscriptionService) checkoutPending(ctx context.Context, userUID string) bool {
	var sessionID string
	found, err := s.cache.Get(ctx, cache.CheckoutKey(userUID), &sessionID)
	if err != nil {
		s.log.Warn("failed to read pending checkout", slog.String("user_uid", userUID), sl.Err(err))
		return false
	}
	return found
}

// loadSubscription читает сохранённую подписку через кэш.
func (s *SubscriptionService) loadSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	key := cache.SubscriptionKey(userUID)
	var cached models.Subscription
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read subscription from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	version, verErr := s.cache.Version(ctx, key)
	if verErr != nil {
		s.log.Warn("failed to read cache version", slog.String("key", key), sl.Err(verErr))
	}

	sub, err := s.repo.GetSubscriptionByUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if verErr != nil {
		return sub, nil
	}
	stored, err := s.cache.SetIfVersion(ctx, key, version, sub, subscriptionTTL)
	if err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), sl.Err(err))
	} else if !stored {
		s.log.Debug("subscription changed while loading, not cached", slog.String("key", key))
	}
	return sub, nil
}

// invalidate сбрасывает кэш после изменения подписки. Ошибка возвращается
// вызывающему, иначе чтения до истечения TTL видели бы старую запись.
func (s *SubscriptionService) invalidate(ctx context.Context, userUID string) error {
	key := cache.SubscriptionKey(userUID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Error("failed to invalidate cached subscription", slog.String("key", key), sl.Err(err))
		return err
	}
	return nil
}

func (s *SubscriptionService) publish(ctx context.Context, routingKey string, sub *models.Subscription) {
	event := models.SubscriptionEvent{
		UserUID:   sub.UserUID,
		Plan:      sub.Plan,
		EndDate:   sub.EndDate,
		EventType: routingKey,
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.log.Error("failed to publish subscription event",
			slog.String("routing_key", routingKey),
			slog.String("user_uid", sub.UserUID),
			sl.Err(err))
	}
}

// CancelSubscription отменяет подписку пользователя. Отмена у шлюза выполняется
// в конце оплаченного периода и не блокирует локальную отмену при ошибке.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userUID string) (string, error) {
	const op = "services.CancelSubscription"

	sub, err := s.repo.GetSubscriptionByUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoSubscriptionFound
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if sub.StripeSubscriptionID != "" {
		if err := s.gateway.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID); err != nil {
			s.log.Error("failed to cancel subscription at gateway, cancelling locally",
				slog.String("user_uid", userUID),
				slog.String("subscription_id", sub.StripeSubscriptionID),
				sl.Err(err))
		}
	}

	if err := s.repo.DeactivateSubscription(ctx, userUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoSubscriptionFound
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.invalidate(ctx, userUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sub.IsActive = false
	s.publish(ctx, rabbitmq.RoutingKeyCancelled, sub)

	s.log.Info("subscription cancelled", slog.String("user_uid", userUID))
	return cancelledResponse, nil
}

// VerifyPaymentSuccess проверяет у шлюза, что сессия оплачена вызывающим пользователем,
// и возвращает текущее локальное состояние подписки. Оно может ещё не отражать оплату,
// если вебхук не пришёл.
func (s *SubscriptionService) VerifyPaymentSuccess(ctx context.Context, sessionID, userUID string) (*models.SubscriptionStatus, error) {
	const op = "services.VerifyPaymentSuccess"
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("op", op), slog.String("session_id", sessionID))
	if session.PaymentStatus != paymentprovider.PaymentStatusPaid {
		log.Info("payment not completed", slog.String("payment_status", session.PaymentStatus))
		return nil, ErrPaymentNotVerified
	}
	if session.Metadata[metadataUserID] != userUID {
		log.Warn("checkout session owner mismatch", slog.String("user_uid", userUID))
		return nil, ErrSessionOwnerMismatch
	}

	return s.GetUserSubscription(ctx, userUID)
}

// ListAll возвращает страницу всех подписок с вычисленной активностью.
func (s *SubscriptionService) ListAll(ctx context.Context, limit, offset int) ([]*models.Subscription, int, error) {
	const op = "services.ListAll"
	subs, total, err := s.repo.ListSubscriptions(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	for _, sub := range subs {
		sub.IsActive = sub.IsEffectivelyActive(now)
	}
	return subs, total, nil
}

// GetAvailablePlans возвращает каталог тарифов.
func (s *SubscriptionService) GetAvailablePlans() []models.Plan {
	return []models.Plan{
		{
			ID:       models.PlanMonthly,
			Name:     "Monthly Premium",
			Price:    9.99,
			Interval: "month",
			Features: []string{
				"Access to all premium affirmations",
				"Personalized daily affirmations",
				"Audio affirmations",
				"Progress tracking",
			},
		},
		{
			ID:       models.PlanYearly,
			Name:     "Yearly Premium",
			Price:    99.99,
			Interval: "year",
			Features: []string{
				"Access to all premium affirmations",
				"Personalized daily affirmations",
				"Audio affirmations",
				"Progress tracking",
				"Two months free",
			},
		},
	}
}
