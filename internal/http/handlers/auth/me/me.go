// Package me отдаёт текущего пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// Service возвращает пользователя с планами.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Handler обработчик GET /auth/me.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary      Текущий пользователь
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.UserResponse
// @Failure      401 {object} response.ErrorResponse
// @Router       /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}
	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.UserResponse{User: user.Sanitized()})
}
