// Package verifycode обрабатывает проверку кода из письма.
package verifycode

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

// Service проверяет код.
type Service interface {
	VerifyCode(ctx context.Context, email, code string) (string, error)
}

// Request почта и код.
type Request struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"codigo" validate:"required"`
}

// Handler обработчик POST /auth/verify-code.
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
// @Summary      Проверка кода
// @Description  Проверяет код приглашения или токен сброса пароля
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Почта и код"
// @Success      200 {object} response.MessageResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /auth/verify-code [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verifycode"

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

	msg, err := h.service.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Message(msg))
}
