// Package historyrecord реализует HTTP-обработчик записи просмотра аффирмации.
package historyrecord

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

// Service описывает запись просмотра.
type Service interface {
	RecordHistory(ctx context.Context, userUID string, affirmationID int) (*models.AffirmationHistory, error)
}

// Handler обрабатывает запросы записи просмотра.
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
// @Summary Отметить просмотр аффирмации
// @Tags Affirmations
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID аффирмации"
// @Success 201 {object} response.Response{data=models.AffirmationHistory}
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Аффирмация не найдена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /affirmations/{id}/history [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.affirmation.historyrecord"
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
		render.JSON(w, r, response.Error("invalid affirmation id"))
		return
	}

	entry, err := h.service.RecordHistory(r.Context(), ident.UserUID, id)
	if err != nil {
		if errors.Is(err, affservice.ErrAffirmationNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to record history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to record history"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(entry))
}
