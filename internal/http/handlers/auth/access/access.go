// Package access подтверждает клиенту доступ к уровню плана.
// Сама проверка выполняется middlewarectx.RequirePlanParam.
package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// Response результат проверки доступа.
type Response struct {
	Allowed bool   `json:"allowed" example:"true"`
	Tier    string `json:"tier" example:"gold"`
}

// Handler обработчик GET /auth/access/{tier}.
type Handler struct {
	log *slog.Logger
}

// New создаёт Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary      Проверка уровня плана
// @Description  Отвечает 200, если действующий план покрывает уровень, иначе 403
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        tier path string true "Уровень" Enums(base, gold)
// @Success      200 {object} Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Router       /auth/access/{tier} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{Allowed: true, Tier: chi.URLParam(r, "tier")})
}
