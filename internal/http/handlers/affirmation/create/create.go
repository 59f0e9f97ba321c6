// Package create реализует HTTP-обработчик создания аффирмации.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/affirmation-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/sl"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

// Service описывает создание аффирмации.
type Service interface {
	Create(ctx context.Context, userUID string, in models.DummyAffirmation) (*models.Affirmation, error)
}

// Handler обрабатывает запросы создания аффирмации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать аффирмацию
// @Tags Affirmations
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyAffirmation true "Аффирмация"
// @Success 201 {object} response.Response{data=models.Affirmation}
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /affirmations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.affirmation.create"
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

	var req models.DummyAffirmation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	a, err := h.service.Create(r.Context(), id.UserUID, req)
	if err != nil {
		log.Error("failed to create affirmation", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create affirmation"))
		return
	}
	log.Info("affirmation created", slog.Int("id", a.ID))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(a))
}
