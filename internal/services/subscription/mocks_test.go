package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/paymentprovider"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) UpsertSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) DeactivateSubscription(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}

func (m *RepoMock) ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Subscription), args.Int(1), args.Error(2)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.CheckoutSession), args.Error(1)
}

func (m *GatewayMock) RetrieveSession(ctx context.Context, sessionID string) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.CheckoutSession), args.Error(1)
}

func (m *GatewayMock) RetrieveSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Subscription), args.Error(1)
}

func (m *GatewayMock) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *GatewayMock) ConstructEvent(payload []byte, signature string) (*paymentprovider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Event), args.Error(1)
}

// noopCache всегда промахивается.
type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) Version(context.Context, string) (string, error) { return "0", nil }
func (noopCache) Invalidate(context.Context, string) error { return nil }
func (noopCache) SetIfVersion(context.Context, string, string, any, time.Duration) (bool, error) {
	return false, nil
}

// memoryCache повторяет контракт Redis-кэша: значения в JSON и версия ключа,
// которую увеличивает Invalidate.
type memoryCache struct {
	mu            sync.Mutex
	values        map[string][]byte
	versions      map[string]int
	invalidateErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}, versions: map[string]int{}}
}

func (c *memoryCache) Get(_ context.Context, key string, result any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, result)
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) Version(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.Itoa(c.versions[key]), nil
}

func (c *memoryCache) SetIfVersion(_ context.Context, key, version string, value any, _ time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if strconv.Itoa(c.versions[key]) != version {
		return false, nil
	}
	c.values[key] = data
	return true, nil
}

func (c *memoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	delete(c.values, key)
	c.versions[key]++
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var testSettings = Settings{
	PriceIDs:   map[string]string{models.PlanMonthly: "price_monthly", models.PlanYearly: "price_yearly"},
	SuccessURL: "https://app.example.com/subscription/success?session_id={CHECKOUT_SESSION_ID}",
	CancelURL:  "https://app.example.com/subscription/cancel",
}

func newTestService(repo SubscriptionRepository, gw PaymentGateway, pub EventPublisher, now time.Time) *SubscriptionService {
	return newCachedTestService(repo, gw, noopCache{}, pub, now)
}

func newCachedTestService(repo SubscriptionRepository, gw PaymentGateway, c Cache, pub EventPublisher, now time.Time) *SubscriptionService {
	s := NewSubscriptionService(repo, gw, c, pub, testSettings, newNoopLogger())
	s.now = func() time.Time { return now }
	return s
}

// memoryRepo — хранилище подписок в памяти с семантикой upsert по пользователю.
type memoryRepo struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]models.Subscription
	// afterRead однократно вызывается после чтения подписки, вне блокировки.
	afterRead func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{subs: map[string]models.Subscription{}}
}

func (r *memoryRepo) GetUser(_ context.Context, userUID string) (*models.User, error) {
	return &models.User{UUID: userUID}, nil
}

func (r *memoryRepo) GetSubscriptionByUser(_ context.Context, userUID string) (*models.Subscription, error) {
	r.mu.Lock()
	sub, ok := r.subs[userUID]
	hook := r.afterRead
	r.afterRead = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

func (r *memoryRepo) UpsertSubscription(_ context.Context, sub models.Subscription) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[sub.UserUID]; ok {
		sub.ID = existing.ID
	} else {
		r.nextID++
		sub.ID = r.nextID
	}
	r.subs[sub.UserUID] = sub
	return &sub, nil
}

func (r *memoryRepo) DeactivateSubscription(_ context.Context, userUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userUID]
	if !ok {
		return repository.ErrNotFound
	}
	sub.IsActive = false
	r.subs[userUID] = sub
	return nil
}

func (r *memoryRepo) ListSubscriptions(context.Context, int, int) ([]*models.Subscription, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, &sub)
	}
	return out, len(out), nil
}
