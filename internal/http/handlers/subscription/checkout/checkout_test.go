package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	subservice "github.com/magabrotheeeer/affirmation-service/internal/services/subscription"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) CreateCheckoutSession(ctx context.Context, userUID, planType string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, userUID, planType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSession), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCheckoutHandler(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		anonymous   bool
		mockSession *models.CheckoutSession
		mockErr     error
		callService bool
		wantCode    int
	}{
		{
			name:        "session created",
			body:        `{"planType":"monthly"}`,
			callService: true,
			mockSession: &models.CheckoutSession{SessionID: "cs_1", URL: "https://pay/cs_1"},
			wantCode:    http.StatusOK,
		},
		{name: "anonymous", body: `{"planType":"monthly"}`, anonymous: true, wantCode: http.StatusUnauthorized},
		{name: "missing plan", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "broken json", body: `{`, wantCode: http.StatusBadRequest},
		{
			name:        "unknown plan",
			body:        `{"planType":"monthly"}`,
			callService: true,
			mockErr:     subservice.ErrInvalidPlanType,
			wantCode:    http.StatusBadRequest,
		},
		{
			name:        "user gone",
			body:        `{"planType":"monthly"}`,
			callService: true,
			mockErr:     subservice.ErrUserNotFound,
			wantCode:    http.StatusNotFound,
		},
		{
			name:        "gateway failure",
			body:        `{"planType":"monthly"}`,
			callService: true,
			mockErr:     errors.New("stripe down"),
			wantCode:    http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callService {
				svc.On("CreateCheckoutSession", mock.Anything, "uid-1", models.PlanMonthly).
					Return(tt.mockSession, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/subscription/create-checkout-session", bytes.NewBufferString(tt.body))
			if !tt.anonymous {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), middlewarectx.Identity{UserUID: "uid-1"}))
			}
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var got struct {
					Status string                 `json:"status"`
					Data   models.CheckoutSession `json:"data"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, "cs_1", got.Data.SessionID)
				assert.Equal(t, "https://pay/cs_1", got.Data.URL)
			}
			svc.AssertExpectations(t)
		})
	}
}
