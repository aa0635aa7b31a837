// Package register обрабатывает самостоятельную регистрацию.
package register

import (
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

// Request входные данные для регистрации.
type Request struct {
	Name  string `json:"nome" validate:"required,max=255" example:"Maria Silva"`
	Email string `json:"email" validate:"required,email,max=255" example:"maria@fazenda.com"`
	Phone string `json:"telefone" validate:"required,max=32" example:"(11) 98765-4321"`
}

// Handler обработчик POST /auth/register.
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
// @Summary      Регистрация
// @Description  Создаёт учётную запись и отправляет письмо со ссылкой подтверждения
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Данные регистрации"
// @Success      201 {object} response.MessageResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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
	log.Info("request body decoded", sl.Email(req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	msg, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("user registered", sl.Email(req.Email))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.Message(msg))
}
