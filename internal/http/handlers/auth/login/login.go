// Package login обрабатывает вход по email и паролю.
package login

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
)

// Request входные данные для входа.
type Request struct {
	Email    string `json:"email" validate:"required" example:"maria@fazenda.com"`
	Password string `json:"senha" validate:"required" example:"Segura#2024"`
}

// Handler обработчик POST /auth/login.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary      Вход
// @Description  Проверяет пароль и выдаёт токен сессии на 24 часа
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Учётные данные"
// @Success      200 {object} response.UserResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	render.JSON(w, r, response.UserResponse{User: user.Sanitized(), Token: token})
}
