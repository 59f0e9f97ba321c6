// Package historylist реализует HTTP-обработчик истории просмотров пользователя.
package historylist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

// Service описывает получение истории просмотров.
type Service interface {
	ListHistory(ctx context.Context, userUID string) ([]*models.AffirmationHistory, error)
}

// Handler обрабатывает запросы истории.
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
// @Summary История просмотров
// @Tags Affirmations
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.AffirmationHistory}
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /affirmations/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.affirmation.historylist"
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

	items, err := h.service.ListHistory(r.Context(), id.UserUID)
	if err != nil {
		log.Error("failed to list history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list history"))
		return
	}

	render.JSON(w, r, response.OKWithData(items))
}
