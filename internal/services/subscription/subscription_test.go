package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/affirmation-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	"github.com/magabrotheeeer/affirmation-service/internal/paymentprovider"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

const testUserUID = "3f8a1c9e-2b4d-4e6f-8a1c-9e2b4d4e6f8a"

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCreateCheckoutSession(t *testing.T) {
	tests := []struct {
		name     string
		planType string
		setup    func(repo *RepoMock, gw *GatewayMock)
		wantErr  error
		wantID   string
	}{
		{
			name:     "invalid plan type never reaches the gateway",
			planType: "weekly",
			setup:    func(_ *RepoMock, _ *GatewayMock) {},
			wantErr:  ErrInvalidPlanType,
		},
		{
			name:     "unknown user",
			planType: models.PlanMonthly,
			setup: func(repo *RepoMock, _ *GatewayMock) {
				repo.On("GetUser", mock.Anything, testUserUID).
					Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name:     "yearly plan uses yearly price and embeds metadata",
			planType: models.PlanYearly,
			setup: func(repo *RepoMock, gw *GatewayMock) {
				repo.On("GetUser", mock.Anything, testUserUID).
					Return(&models.User{UUID: testUserUID, Email: "user@example.com"}, nil)
				gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req paymentprovider.CheckoutRequest) bool {
					return req.PriceID == "price_yearly" &&
						req.CustomerEmail == "user@example.com" &&
						req.SuccessURL == testSettings.SuccessURL &&
						req.CancelURL == testSettings.CancelURL &&
						req.Metadata["userId"] == testUserUID &&
						req.Metadata["planType"] == models.PlanYearly &&
						req.IdempotencyKey != ""
				})).Return(&paymentprovider.CheckoutSession{ID: "cs_1", URL: "https://pay/cs_1"}, nil)
			},
			wantID: "cs_1",
		},
		{
			name:     "gateway failure surfaces",
			planType: models.PlanMonthly,
			setup: func(repo *RepoMock, gw *GatewayMock) {
				repo.On("GetUser", mock.Anything, testUserUID).
					Return(&models.User{UUID: testUserUID}, nil)
				gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).
					Return(nil, errors.New("stripe down"))
			},
			wantErr: errors.New("stripe down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			gw := new(GatewayMock)
			tt.setup(repo, gw)
			s := newTestService(repo, gw, new(PublisherMock), testNow)

			got, err := s.CreateCheckoutSession(context.Background(), testUserUID, tt.planType)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrInvalidPlanType) || errors.Is(tt.wantErr, ErrUserNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, got.SessionID)
				assert.Equal(t, "https://pay/cs_1", got.URL)
			}
			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
			if tt.planType == "weekly" {
				gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGetUserSubscription_NoRow(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetSubscriptionByUser", mock.Anything, testUserUID).
		Return(nil, repository.ErrNotFound)
	s := newTestService(repo, new(GatewayMock), new(PublisherMock), testNow)

	got, err := s.GetUserSubscription(context.Background(), testUserUID)
	require.NoError(t, err)
	assert.False(t, got.HasSubscription)
	assert.Equal(t, models.StateNone, got.State)
	assert.Nil(t, got.Subscription)
}

func TestGetUserSubscription_ComputedActivity(t *testing.T) {
	tests := []struct {
		name      string
		stored    bool
		endDate   time.Time
		wantFlag  bool
		wantState models.SubscriptionState
	}{
		{name: "stored active, future end", stored: true, endDate: testNow.AddDate(0, 1, 0), wantFlag: true, wantState: models.StateActive},
		{name: "stored active, past end", stored: true, endDate: testNow.AddDate(0, -1, 0), wantFlag: false, wantState: models.StateLapsed},
		{name: "stored inactive, future end", stored: false, endDate: testNow.AddDate(0, 1, 0), wantFlag: false, wantState: models.StateCancelScheduled},
		{name: "stored inactive, past end", stored: false, endDate: testNow.AddDate(0, -1, 0), wantFlag: false, wantState: models.StateLapsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := &models.Subscription{
				UserUID:  testUserUID,
				Plan:     models.PlanMonthly,
				IsActive: tt.stored,
				EndDate:  tt.endDate,
			}
			repo := new(RepoMock)
			repo.On("GetSubscriptionByUser", mock.Anything, testUserUID).Return(stored, nil)
			s := newTestService(repo, new(GatewayMock), new(PublisherMock), testNow)

			got, err := s.GetUserSubscription(context.Background(), testUserUID)
			require.NoError(t, err)
			assert.True(t, got.HasSubscription)
			assert.Equal(t, tt.wantFlag, got.Subscription.IsActive)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.stored, stored.IsActive, "stored row must not be mutated")
		})
	}
}

func TestCancelSubscription(t *testing.T) {
	t.Run("no row", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetSubscriptionByUser", mock.Anything, testUserUID).Return(nil, repository.ErrNotFound)
		gw := new(GatewayMock)
		s := newTestService(repo, gw, new(PublisherMock), testNow)

		_, err := s.CancelSubscription(context.Background(), testUserUID)
		assert.ErrorIs(t, err, ErrNoSubscriptionFound)
		gw.AssertNotCalled(t, "CancelAtPeriodEnd", mock.Anything, mock.Anything)
	})

	gatewayResults := map[string]error{
		"gateway succeeds": nil,
		"gateway fails":    errors.New("stripe timeout"),
	}
	for name, gwErr := range gatewayResults {
		t.Run(name, func(t *testing.T) {
			repo := newMemoryRepo()
			_, err := repo.UpsertSubscription(context.Background(), models.Subscription{
				UserUID: testUserUID, Plan: models.PlanMonthly, IsActive: true,
				EndDate: testNow.AddDate(0, 1, 0), StripeSubscriptionID: "sub_1",
			})
			require.NoError(t, err)

			gw := new(GatewayMock)
			gw.On("CancelAtPeriodEnd", mock.Anything, "sub_1").Return(gwErr).Once()
			pub := new(PublisherMock)
			pub.On("Publish", mock.Anything, rabbitmq.RoutingKeyCancelled, mock.MatchedBy(func(ev models.SubscriptionEvent) bool {
				return ev.UserUID == testUserUID && ev.EventType == rabbitmq.RoutingKeyCancelled
			})).Return(nil).Once()
			s := newTestService(repo, gw, pub, testNow)

			msg, err := s.CancelSubscription(context.Background(), testUserUID)
			require.NoError(t, err)
			assert.Equal(t, "Subscription cancelled successfully", msg)

			stored, err := repo.GetSubscriptionByUser(context.Background(), testUserUID)
			require.NoError(t, err)
			assert.False(t, stored.IsActive)
			assert.Equal(t, models.StateCancelScheduled, stored.State(testNow, false))
			gw.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}

	t.Run("without gateway subscription id", func(t *testing.T) {
		repo := newMemoryRepo()
		_, err := repo.UpsertSubscription(context.Background(), models.Subscription{
			UserUID: testUserUID, Plan: models.PlanYearly, IsActive: true, EndDate: testNow.AddDate(1, 0, 0),
		})
		require.NoError(t, err)
		gw := new(GatewayMock)
		pub := new(PublisherMock)
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
		s := newTestService(repo, gw, pub, testNow)

		_, err = s.CancelSubscription(context.Background(), testUserUID)
		require.NoError(t, err)
		gw.AssertNotCalled(t, "CancelAtPeriodEnd", mock.Anything, mock.Anything)
	})
}

func TestVerifyPaymentSuccess(t *testing.T) {
	active := &models.Subscription{UserUID: testUserUID, Plan: models.PlanMonthly, IsActive: true, EndDate: testNow.AddDate(0, 1, 0)}

	tests := []struct {
		name      string
		sessionID string
		session   *paymentprovider.CheckoutSession
		gwErr     error
		wantErr   error
	}{
		{name: "missing session id", sessionID: "", wantErr: ErrSessionIDRequired},
		{
			name:      "unpaid session",
			sessionID: "cs_1",
			session:   &paymentprovider.CheckoutSession{PaymentStatus: "unpaid", Metadata: map[string]string{"userId": testUserUID}},
			wantErr:   ErrPaymentNotVerified,
		},
		{
			name:      "session of another user",
			sessionID: "cs_1",
			session:   &paymentprovider.CheckoutSession{PaymentStatus: "paid", Metadata: map[string]string{"userId": "someone-else"}},
			wantErr:   ErrSessionOwnerMismatch,
		},
		{
			name:      "paid by caller",
			sessionID: "cs_1",
			session:   &paymentprovider.CheckoutSession{PaymentStatus: "paid", Metadata: map[string]string{"userId": testUserUID}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("GetSubscriptionByUser", mock.Anything, testUserUID).Return(active, nil).Maybe()
			gw := new(GatewayMock)
			if tt.sessionID != "" {
				gw.On("RetrieveSession", mock.Anything, tt.sessionID).Return(tt.session, tt.gwErr)
			}
			s := newTestService(repo, gw, new(PublisherMock), testNow)

			got, err := s.VerifyPaymentSuccess(context.Background(), tt.sessionID, testUserUID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.HasSubscription)
			assert.True(t, got.Subscription.IsActive)
			assert.Equal(t, models.StateActive, got.State)
		})
	}
}

func TestListAll_ComputesActivity(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListSubscriptions", mock.Anything, 10, 0).Return([]*models.Subscription{
		{UserUID: "a", IsActive: true, EndDate: testNow.Add(time.Hour)},
		{UserUID: "b", IsActive: true, EndDate: testNow.Add(-time.Hour)},
	}, 2, nil)
	s := newTestService(repo, new(GatewayMock), new(PublisherMock), testNow)

	subs, total, err := s.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.True(t, subs[0].IsActive)
	assert.False(t, subs[1].IsActive)
}

func TestGetAvailablePlans(t *testing.T) {
	s := newTestService(new(RepoMock), new(GatewayMock), new(PublisherMock), testNow)

	plans := s.GetAvailablePlans()
	require.Len(t, plans, 2)
	assert.Equal(t, models.PlanMonthly, plans[0].ID)
	assert.InDelta(t, 9.99, plans[0].Price, 0.001)
	assert.Equal(t, models.PlanYearly, plans[1].ID)
	assert.InDelta(t, 99.99, plans[1].Price, 0.001)
}
