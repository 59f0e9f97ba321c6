// Package verify реализует HTTP-обработчик проверки оплаты после возврата со страницы шлюза.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	subservice "github.com/magabrotheeeer/affirmation-service/internal/services/subscription"
)

// Service описывает проверку оплаты.
type Service interface {
	VerifyPaymentSuccess(ctx context.Context, sessionID, userUID string) (*models.SubscriptionStatus, error)
}

// Handler обрабатывает запросы проверки оплаты.
type Handler struct {
	log         *slog.Logger
	service     Service
	authzStatus int
}

// New создает новый экземпляр Handler. authzStatus задаёт статус ответа на чужую сессию оплаты.
func New(log *slog.Logger, service Service, authzStatus int) *Handler {
	return &Handler{
		log:         log,
		service:     service,
		authzStatus: authzStatus,
	}
}

// ServeHTTP godoc
// @Summary Проверить оплату
// @Description Проверяет у шлюза, что сессия оплачена текущим пользователем, и возвращает статус подписки.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Param session_id query string true "Идентификатор сессии оплаты"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Нет session_id или оплата не завершена"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 403 {object} response.ErrorResponse "Сессия принадлежит другому пользователю"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /subscription/verify-payment [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	status, err := h.service.VerifyPaymentSuccess(r.Context(), r.URL.Query().Get("session_id"), id.UserUID)
	if err != nil {
		switch {
		case errors.Is(err, subservice.ErrSessionIDRequired), errors.Is(err, subservice.ErrPaymentNotVerified):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, subservice.ErrSessionOwnerMismatch):
			render.Status(r, h.authzStatus)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to verify payment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to verify payment"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":      "Payment verified successfully",
		"subscription": status,
	}))
}
