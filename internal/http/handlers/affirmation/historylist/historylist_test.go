package historylist

import (
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
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) ListHistory(ctx context.Context, userUID string) ([]*models.AffirmationHistory, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AffirmationHistory), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHistoryListHandler(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ListHistory", mock.Anything, "uid-1").
		Return([]*models.AffirmationHistory{{ID: 1, UserUID: "uid-1", AffirmationID: 2}}, nil).Once()
	svc.On("ListHistory", mock.Anything, "uid-2").Return(nil, errors.New("db down")).Once()

	req := httptest.NewRequest(http.MethodGet, "/affirmations/history", nil)
	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rec, req.WithContext(
		middlewarectx.WithIdentity(req.Context(), middlewarectx.Identity{UserUID: "uid-1"})))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got["data"], 1)

	rec = httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rec, req.WithContext(
		middlewarectx.WithIdentity(req.Context(), middlewarectx.Identity{UserUID: "uid-2"})))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertExpectations(t)
}
