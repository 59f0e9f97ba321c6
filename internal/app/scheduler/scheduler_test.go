package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	schedulerservice "github.com/magabrotheeeer/affirmation-service/internal/services/scheduler"
)

type BroadcasterMock struct{ mock.Mock }

func (m *BroadcasterMock) RunAffirmationBroadcast(ctx context.Context) (schedulerservice.BroadcastReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(schedulerservice.BroadcastReport), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestEverySpec(t *testing.T) {
	spec, err := everySpec(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "@every 24h0m0s", spec)

	_, err = everySpec(500 * time.Millisecond)
	assert.Error(t, err)

	_, err = newCron(newNoopLogger()).AddFunc(spec, func() {})
	assert.NoError(t, err)
}

func TestTick_HandlesAllOutcomes(t *testing.T) {
	svc := new(BroadcasterMock)
	svc.On("RunAffirmationBroadcast", mock.Anything).
		Return(schedulerservice.BroadcastReport{Users: 2, Sent: 2}, nil).Once()
	svc.On("RunAffirmationBroadcast", mock.Anything).
		Return(schedulerservice.BroadcastReport{}, schedulerservice.ErrTickInProgress).Once()
	svc.On("RunAffirmationBroadcast", mock.Anything).
		Return(schedulerservice.BroadcastReport{}, errors.New("db down")).Once()

	app := &App{service: svc, logger: newNoopLogger()}
	for range 3 {
		assert.NotPanics(t, func() { app.tick(context.Background()) })
	}
	svc.AssertExpectations(t)
}

func TestCron_RecoversFromPanickingJob(t *testing.T) {
	c := newCron(newNoopLogger())
	done := make(chan struct{}, 1)
	job := c.Schedule(tenMillis{}, cronFunc(func() {
		select {
		case done <- struct{}{}:
		default:
		}
		panic("boom")
	}))
	require.NotZero(t, job)

	c.Start()
	defer c.Stop()

	for range 2 {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("job did not run again after panic")
		}
	}
}

type tenMillis struct{}

func (tenMillis) Next(t time.Time) time.Time { return t.Add(10 * time.Millisecond) }

type cronFunc func()

func (f cronFunc) Run() { f() }
