// Package scheduler запускает периодическую рассылку аффирмаций.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/affirmation-service/internal/config"
	"github.com/magabrotheeeer/affirmation-service/internal/grpc/health"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/pushprovider"
	notifyservice "github.com/magabrotheeeer/affirmation-service/internal/services/notification"
	schedulerservice "github.com/magabrotheeeer/affirmation-service/internal/services/scheduler"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

const (
	serviceName = "scheduler"
	dbAttempts  = 10
	dbDelay     = 3 * time.Second
)

// Broadcaster выполняет один тик рассылки.
type Broadcaster interface {
	RunAffirmationBroadcast(ctx context.Context) (schedulerservice.BroadcastReport, error)
}

// App представляет приложение планировщика.
type App struct {
	cron     *cron.Cron
	health   *health.Server
	db       *repository.Storage
	service  Broadcaster
	interval time.Duration
	logger   *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range dbAttempts {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	push, err := pushprovider.New(ctx, logger, cfg.Firebase)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init push provider: %w", err)
	}

	hs, err := health.New(cfg.SchedulerHealthAddress, serviceName, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to start health server: %w", err)
	}

	notifier := notifyservice.NewNotificationService(db, push, logger)
	service := schedulerservice.NewSchedulerService(db, notifier, cfg.BatchSize, logger)

	return &App{
		cron:     newCron(logger),
		health:   hs,
		db:       db,
		service:  service,
		interval: cfg.Interval,
		logger:   logger,
	}, nil
}

func newCron(logger *slog.Logger) *cron.Cron {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
}

func everySpec(interval time.Duration) (string, error) {
	if interval < time.Second {
		return "", fmt.Errorf("scheduler interval must be at least 1s, got %s", interval)
	}
	return "@every " + interval.String(), nil
}

// tick запускает одну рассылку. Пропуск из-за незавершённого тика ошибкой не считается.
func (a *App) tick(ctx context.Context) {
	report, err := a.service.RunAffirmationBroadcast(ctx)
	switch {
	case errors.Is(err, schedulerservice.ErrTickInProgress):
		a.logger.Warn("previous broadcast still running, tick skipped")
	case err != nil:
		a.logger.Error("affirmation broadcast failed", sl.Err(err))
	default:
		a.logger.Info("affirmation broadcast finished",
			slog.Int("users", report.Users),
			slog.Int("sent", report.Sent),
			slog.Int("failed", report.Failed))
	}
}

// Run регистрирует задачу рассылки и работает до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	spec, err := everySpec(a.interval)
	if err != nil {
		return err
	}
	if _, err := a.cron.AddFunc(spec, func() { a.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule affirmation broadcast: %w", err)
	}
	a.logger.Info("scheduled affirmation broadcast", slog.String("schedule", spec))

	healthErr := make(chan error, 1)
	go func() { healthErr <- a.health.Run(ctx) }()

	a.cron.Start()
	a.health.SetServing(true)

	select {
	case <-ctx.Done():
	case err = <-healthErr:
	}

	a.logger.Info("shutting down scheduler service")
	a.health.SetServing(false)
	// Ждём завершения текущего тика.
	<-a.cron.Stop().Done()

	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Error("failed to close storage", sl.Err(closeErr))
	}
	return err
}
