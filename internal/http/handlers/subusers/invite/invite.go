// Package invite обрабатывает приглашение суб-пользователя администратором.
package invite

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

// Service создаёт приглашённую учётную запись.
type Service interface {
	PreRegisterSubUser(ctx context.Context, adminID uuid.UUID, in auth.InviteInput) (string, error)
}

// Request данные приглашения.
type Request struct {
	Email       string      `json:"email" validate:"required,email,max=255" example:"joao@fazenda.com"`
	Role        string      `json:"role" validate:"required,oneof=MANAGER EMPLOYEE" example:"MANAGER"`
	PropertyIDs []uuid.UUID `json:"propriedades" validate:"required,min=1"`
}

// Handler обработчик POST /auth/sub-users.
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
// @Summary      Приглашение суб-пользователя
// @Description  Создаёт учётную запись MANAGER или EMPLOYEE и отправляет код приглашения
// @Tags         sub-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Request true "Приглашение"
// @Success      201 {object} response.MessageResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /auth/sub-users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subusers.invite"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	adminID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, r, log, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return
	}

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

	msg, err := h.service.PreRegisterSubUser(r.Context(), adminID, auth.InviteInput{
		Email:       req.Email,
		Role:        models.Role(req.Role),
		PropertyIDs: req.PropertyIDs,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("sub-user invited", slog.String("admin_id", adminID.String()), sl.Email(req.Email))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.Message(msg))
}
