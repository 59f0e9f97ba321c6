package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/affirmation-service/internal/cache"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/metrics"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/paymentprovider"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

// HandleWebhookEvent проверяет подпись события шлюза и сверяет по нему локальную подписку.
// Повторная доставка того же события перезаписывает запись теми же данными.
func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, payload []byte, signature string) error {
	const op = "services.HandleWebhookEvent"
	log := s.log.With(slog.String("op", op))

	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		log.Warn("webhook signature verification failed", sl.Err(err))
		metrics.RecordWebhookEvent("unknown", metrics.ResultInvalid)
		return fmt.Errorf("%w: %w", ErrSignatureVerification, err)
	}
	log = log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	switch event.Type {
	case paymentprovider.EventCheckoutCompleted:
		if err := s.handleCheckoutCompleted(ctx, log, event.Session); err != nil {
			metrics.RecordWebhookEvent(event.Type, metrics.ResultError)
			return err
		}
		metrics.RecordWebhookEvent(event.Type, metrics.ResultOK)
	case paymentprovider.EventSubscriptionUpdated, paymentprovider.EventSubscriptionDeleted:
		// Отмена обрабатывается только через явный запрос пользователя.
		log.Info("subscription event accepted without local changes")
		metrics.RecordWebhookEvent(event.Type, metrics.ResultIgnored)
	default:
		log.Debug("unhandled webhook event type")
		metrics.RecordWebhookEvent(event.Type, metrics.ResultIgnored)
	}
	return nil
}

func (s *SubscriptionService) handleCheckoutCompleted(ctx context.Context, log *slog.Logger, session *paymentprovider.CheckoutSession) error {
	const op = "services.handleCheckoutCompleted"
	if session == nil || session.Mode != paymentprovider.ModeSubscription {
		log.Info("checkout session is not a subscription, skipping")
		return nil
	}

	userUID := session.Metadata[metadataUserID]
	planType := session.Metadata[metadataPlanType]
	if !validUserUID(userUID) || !validPlan(planType) || session.SubscriptionID == "" {
		log.Error("checkout session metadata is incomplete",
			slog.String("session_id", session.ID),
			slog.String("user_uid", userUID),
			slog.String("plan", planType))
		return ErrInvalidWebhookPayload
	}

	remote, err := s.gateway.RetrieveSubscription(ctx, session.SubscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	start, end := remote.CurrentPeriodStart, remote.CurrentPeriodEnd
	if start.IsZero() {
		start = now
	}
	if end.IsZero() {
		end = now.Add(defaultPeriod)
	}

	customerID := remote.CustomerID
	if customerID == "" {
		customerID = session.CustomerID
	}

	saved, err := s.repo.UpsertSubscription(ctx, models.Subscription{
		UserUID:              userUID,
		Plan:                 planType,
		StartDate:            start,
		EndDate:              end,
		IsActive:             remote.Status == paymentprovider.StatusActive,
		StripeSubscriptionID: remote.ID,
		StripeCustomerID:     customerID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Error("checkout session references unknown user", slog.String("user_uid", userUID))
			return fmt.Errorf("%w: %w", ErrInvalidWebhookPayload, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.invalidate(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription reconciled",
		slog.String("user_uid", userUID),
		slog.String("plan", planType),
		slog.Bool("is_active", saved.IsActive))

	if saved.IsActive {
		if err := s.cache.Invalidate(ctx, cache.CheckoutKey(userUID)); err != nil {
			log.Warn("failed to clear pending checkout", slog.String("user_uid", userUID), sl.Err(err))
		}
		s.publish(ctx, rabbitmq.RoutingKeyActivated, saved)
	}
	return nil
}

func validUserUID(userUID string) bool {
	_, err := uuid.Parse(userUID)
	return err == nil
}

// IsClientError сообщает, что ошибка вызвана содержимым запроса, а не сбоем сервиса.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSignatureVerification) || errors.Is(err, ErrInvalidWebhookPayload)
}
