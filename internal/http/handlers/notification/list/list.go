// Package list реализует HTTP-обработчик постраничного списка уведомлений пользователя.
package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	notifyservice "github.com/magabrotheeeer/affirmation-service/internal/services/notification"
)

// Service описывает получение страницы уведомлений.
type Service interface {
	List(ctx context.Context, userUID string, page, limit int) (*models.NotificationPage, error)
}

// Handler обрабатывает запросы списка уведомлений.
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

// queryInt возвращает 0 для отсутствующего параметра, чтобы сервис подставил значение по умолчанию.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// ServeHTTP godoc
// @Summary Список уведомлений
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Param page query int false "Номер страницы, с 1"
// @Param limit query int false "Размер страницы (по умолчанию 20, максимум 100)"
// @Success 200 {object} response.Response{data=models.NotificationPage}
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.list"
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

	page, errPage := queryInt(r, "page")
	limit, errLimit := queryInt(r, "limit")
	if errPage != nil || errLimit != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("page and limit must be integers"))
		return
	}

	res, err := h.service.List(r.Context(), id.UserUID, page, limit)
	if err != nil {
		if errors.Is(err, notifyservice.ErrInvalidPaginationArgs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to list notifications", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list notifications"))
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}
