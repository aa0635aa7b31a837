// Package forgotpassword обрабатывает запрос на сброс пароля.
package forgotpassword

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
)

// Service запрашивает сброс пароля. Ответ не зависит от существования почты.
type Service interface {
	ForgotPassword(ctx context.Context, email string) string
}

// Request почта пользователя. Пустая почта не ошибка: ответ тот же.
type Request struct {
	Email string `json:"email"`
}

// Handler обработчик POST /auth/forgot-password.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary      Запрос сброса пароля
// @Description  Всегда отвечает одним и тем же сообщением
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Почта"
// @Success      200 {object} response.MessageResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /auth/forgot-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	render.JSON(w, r, response.Message(h.service.ForgotPassword(r.Context(), req.Email)))
}
