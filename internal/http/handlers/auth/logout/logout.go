// Package logout завершает текущую сессию.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/farm-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
)

// Service отзывает сессию.
type Service interface {
	Logout(ctx context.Context, token string) (string, error)
}

// Handler обработчик POST /auth/logout.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary      Выход
// @Description  Отзывает токен текущей сессии
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.MessageResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token, ok := middlewarectx.TokenFromContext(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}
	msg, err := h.service.Logout(r.Context(), token)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("session revoked")
	render.JSON(w, r, response.Message(msg))
}
