// Package update обрабатывает частичное обновление профиля.
package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/services/auth"
)

// Service обновляет профиль и выдаёт новый токен.
type Service interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, in auth.ProfileInput) (*models.User, string, error)
}

// Request изменяемые поля. Отсутствующие поля не меняются.
type Request struct {
	Name  *string `json:"nome,omitempty" validate:"omitempty,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone *string `json:"telefone,omitempty" validate:"omitempty,max=32"`
	Photo *string `json:"fotoperfil,omitempty"`
}

// Handler обработчик PUT /auth/update.
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
// @Summary      Обновление профиля
// @Description  Записывает переданные поля; fotoperfil может быть data URL
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Request true "Изменяемые поля"
// @Success      200 {object} response.UserResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /auth/update [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}
	log = log.With(slog.String("user_id", userID.String()))

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

	user, token, err := h.service.UpdateProfile(r.Context(), userID, auth.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Photo: req.Photo,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("profile updated")
	render.JSON(w, r, response.UserResponse{User: user.Sanitized(), Token: token})
}
