// Package resetpassword обрабатывает установку нового пароля по токену сброса.
package resetpassword

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
)

// Service сбрасывает пароль.
type Service interface {
	ResetPassword(ctx context.Context, token, password, confirm string) (string, error)
}

// Request токен сброса и новый пароль.
type Request struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"senha" validate:"required"`
	ConfirmPassword string `json:"confirmarSenha" validate:"required"`
}

// Handler обработчик POST /auth/reset-password.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary      Сброс пароля
// @Description  Задаёт новый пароль по действующему токену сброса
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Токен и пароль"
// @Success      200 {object} response.MessageResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /auth/reset-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resetpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	msg, err := h.service.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("password reset")
	render.JSON(w, r, response.Message(msg))
}
