// Package webhook реализует приём событий платёжного шлюза.
//
// Тело запроса читается без разбора: подпись в заголовке Stripe-Signature
// проверяется по исходным байтам.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	subservice "github.com/magabrotheeeer/affirmation-service/internal/services/subscription"
)

// SignatureHeader — заголовок с подписью события.
const SignatureHeader = "Stripe-Signature"

const maxBodyBytes = 64 << 10

// Service описывает обработку события шлюза.
type Service interface {
	HandleWebhookEvent(ctx context.Context, payload []byte, signature string) error
}

// Handler принимает вебхуки платёжного шлюза.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного шлюза
// @Description Принимает события Stripe. Ответ 400 означает неверную подпись или данные, 500 означает временный сбой.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} map[string]bool "{received: true}"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или данные события"
// @Failure 500 {object} response.ErrorResponse "Ошибка обработки"
// @Router /subscription/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}

	if err := h.service.HandleWebhookEvent(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		if subservice.IsClientError(err) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to process webhook event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process webhook event"))
		return
	}

	render.JSON(w, r, map[string]bool{"received": true})
}
