// Package services содержит периодическую рассылку аффирмаций пользователям
// с зарегистрированным токеном устройства.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/magabrotheeeer/affirmation-service/internal/lib/metrics"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

// ErrTickInProgress возвращается, если предыдущий проход рассылки ещё не завершён.
var ErrTickInProgress = errors.New("affirmation broadcast already in progress")

const (
	broadcastTitle    = "Daily Affirmation"
	defaultBatchSize  = 500
	dataTypeBroadcast = "daily_affirmation"
)

// Repository определяет методы хранилища, нужные планировщику.
type Repository interface {
	ListAffirmations(ctx context.Context) ([]*models.Affirmation, error)
	ListUsersWithDeviceToken(ctx context.Context, afterUID string, limit int) ([]*models.User, error)
}

// Notifier доставляет уведомление пользователю.
type Notifier interface {
	Deliver(ctx context.Context, user *models.User, draft models.NotificationDraft) (*models.Notification, error)
}

// BroadcastReport — итог одного прохода рассылки.
type BroadcastReport struct {
	Users  int
	Sent   int
	Failed int
}

// SchedulerService рассылает аффирмации. Одновременно выполняется не более одного прохода.
type SchedulerService struct {
	repo      Repository
	notifier  Notifier
	log       *slog.Logger
	batchSize int
	pick      func(n int) int
	running   atomic.Bool
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo Repository, notifier Notifier, batchSize int, log *slog.Logger) *SchedulerService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SchedulerService{
		repo:      repo,
		notifier:  notifier,
		log:       log,
		batchSize: batchSize,
		pick:      rand.IntN,
	}
}

// RunAffirmationBroadcast отправляет каждому пользователю с токеном устройства
// случайную аффирмацию. Ошибка доставки одному пользователю не прерывает проход,
// ошибка чтения из хранилища прерывает.
func (s *SchedulerService) RunAffirmationBroadcast(ctx context.Context) (BroadcastReport, error) {
	const op = "services.RunAffirmationBroadcast"
	log := s.log.With(slog.String("op", op))

	if !s.running.CompareAndSwap(false, true) {
		log.Warn("previous broadcast is still running, skipping tick")
		metrics.RecordBroadcastTick(metrics.OutcomeSkipped, 0)
		return BroadcastReport{}, ErrTickInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	report, err := s.broadcast(ctx, log)
	if err != nil {
		metrics.RecordBroadcastTick(metrics.ResultError, time.Since(started))
		log.Error("affirmation broadcast aborted", sl.Err(err),
			slog.Int("sent", report.Sent), slog.Int("failed", report.Failed))
		return report, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordBroadcastTick(metrics.ResultOK, time.Since(started))
	log.Info("affirmation broadcast finished",
		slog.Int("users", report.Users),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Duration("took", time.Since(started)))
	return report, nil
}

func (s *SchedulerService) broadcast(ctx context.Context, log *slog.Logger) (BroadcastReport, error) {
	var report BroadcastReport

	affirmations, err := s.repo.ListAffirmations(ctx)
	if err != nil {
		return report, err
	}
	if len(affirmations) == 0 {
		log.Info("no affirmations to broadcast")
		return report, nil
	}

	after := ""
	for {
		users, err := s.repo.ListUsersWithDeviceToken(ctx, after, s.batchSize)
		if err != nil {
			return report, err
		}
		for _, user := range users {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if !user.HasDeviceToken() {
				continue
			}
			report.Users++
			a := affirmations[s.pick(len(affirmations))]
			if _, err := s.notifier.Deliver(ctx, user, draftFor(a)); err != nil {
				report.Failed++
				log.Warn("failed to deliver affirmation",
					slog.String("user_uid", user.UUID),
					slog.Int("affirmation_id", a.ID),
					sl.Err(err))
				continue
			}
			report.Sent++
		}
		if len(users) < s.batchSize {
			return report, nil
		}
		after = users[len(users)-1].UUID
	}
}

func draftFor(a *models.Affirmation) models.NotificationDraft {
	return models.NotificationDraft{
		Title: broadcastTitle,
		Body:  a.Content,
		Type:  models.NotificationTypeAffirmation,
		Data: map[string]string{
			"affirmationId": strconv.Itoa(a.ID),
			"type":          dataTypeBroadcast,
		},
	}
}
