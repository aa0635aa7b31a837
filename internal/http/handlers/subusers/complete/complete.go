// Package complete обрабатывает завершение профиля приглашённым пользователем.
package complete

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
	"github.com/magabrotheeeer/farm-manager/internal/services/auth"
)

// Service активирует приглашённую учётную запись.
type Service interface {
	CompleteSubUserProfile(ctx context.Context, in auth.CompleteProfileInput) (string, error)
}

// Request данные профиля. Проверка паролей выполняется сервисом.
type Request struct {
	Email           string `json:"email" validate:"required,email" example:"joao@fazenda.com"`
	Code            string `json:"codigo" validate:"required"`
	Name            string `json:"nome" validate:"required,max=255" example:"João Souza"`
	Phone           string `json:"telefone" validate:"required,max=32" example:"+5511987654321"`
	Password        string `json:"senha"`
	ConfirmPassword string `json:"confirmarSenha"`
}

// Handler обработчик POST /auth/sub-users/complete.
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
// @Summary      Завершение профиля суб-пользователя
// @Description  Задаёт имя, телефон и пароль по коду приглашения и активирует учётную запись
// @Tags         sub-users
// @Accept       json
// @Produce      json
// @Param        request body Request true "Профиль"
// @Success      200 {object} response.MessageResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /auth/sub-users/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subusers.complete"

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

	msg, err := h.service.CompleteSubUserProfile(r.Context(), auth.CompleteProfileInput{
		Email:           req.Email,
		Code:            req.Code,
		Name:            req.Name,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("sub-user profile completed", sl.Email(req.Email))
	render.JSON(w, r, response.Message(msg))
}
