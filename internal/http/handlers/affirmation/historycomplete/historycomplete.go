// Package historycomplete реализует HTTP-обработчик отметки аффирмации выполненной.
package historycomplete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	affservice "github.com/magabrotheeeer/affirmation-service/internal/services/affirmation"
)

// Service описывает отметку записи истории выполненной.
type Service interface {
	CompleteHistory(ctx context.Context, userUID string, historyID int) (*models.AffirmationHistory, error)
}

// Handler обрабатывает запросы отметки выполнения.
type Handler struct {
	log         *slog.Logger
	service     Service
	authzStatus int
}

// New создает новый экземпляр Handler. authzStatus задаёт статус ответа на чужую запись.
func New(log *slog.Logger, service Service, authzStatus int) *Handler {
	return &Handler{
		log:         log,
		service:     service,
		authzStatus: authzStatus,
	}
}

// ServeHTTP godoc
// @Summary Отметить аффирмацию выполненной
// @Tags Affirmations
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID записи истории"
// @Success 200 {object} response.Response{data=models.AffirmationHistory}
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 403 {object} response.ErrorResponse "Чужая запись"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /affirmations/history/{id}/complete [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.affirmation.historycomplete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ident, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid history id"))
		return
	}

	entry, err := h.service.CompleteHistory(r.Context(), ident.UserUID, id)
	if err != nil {
		switch {
		case errors.Is(err, affservice.ErrHistoryNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, affservice.ErrForbidden):
			log.Warn("attempt to complete foreign history entry", slog.Int("history_id", id))
			render.Status(r, h.authzStatus)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to complete history entry", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to complete history entry"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(entry))
}
