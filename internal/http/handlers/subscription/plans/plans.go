// Package plans реализует HTTP-обработчик каталога тарифов.
package plans

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/affirmation-service/internal/http/response"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

// Service описывает каталог тарифов.
type Service interface {
	GetAvailablePlans() []models.Plan
}

// Handler отдаёт каталог тарифов.
type Handler struct {
	service Service
}

// New создает новый экземпляр Handler.
func New(service Service) *Handler {
	return &Handler{service: service}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.Plan}
// @Router /subscription/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.service.GetAvailablePlans()))
}
