// Package webhook принимает уведомления платёжного провайдера об оплате планов.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/services/plan"
)

// SignatureHeader заголовок с подписью тела запроса.
const SignatureHeader = "X-Api-Signature"

const maxBodySize = 1 << 20

// Service применяет платёж к плану пользователя.
type Service interface {
	ApplyPayment(ctx context.Context, ev plan.PaymentEvent) (*models.Plan, error)
}

// Handler обработчик POST /payments/webhook.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New создаёт Handler. secret используется для проверки подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Payload тело уведомления провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		ID       string            `json:"id"`
		Status   string            `json:"status"`
		Metadata map[string]string `json:"metadata"` // user_id, plan
	} `json:"object"`
}

// Sign возвращает подпись тела в формате заголовка X-Api-Signature.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(h.webhookSecret, body)), []byte(signature))
}

// ServeHTTP godoc
// @Summary      Вебхук платёжного провайдера
// @Description  Обновляет статус плана по событию платежа. Неизвестные события игнорируются
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Api-Signature header string true "HMAC-SHA256 тела в base64"
// @Success      200
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer r.Body.Close()

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		log.Error("invalid or missing webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log = log.With(slog.String("event", payload.Event), slog.String("payment_id", payload.Object.ID))

	userID, err := uuid.Parse(payload.Object.Metadata["user_id"])
	if err != nil {
		response.Fail(w, r, log, apperr.Wrap(apperr.KindValidation, "metadata.user_id must be a uuid", err))
		return
	}

	_, err = h.service.ApplyPayment(r.Context(), plan.PaymentEvent{
		Event:     strings.ToLower(payload.Event),
		PaymentID: payload.Object.ID,
		UserID:    userID,
		PlanType:  models.PlanType(strings.ToLower(payload.Object.Metadata["plan"])),
	})
	switch {
	case errors.Is(err, plan.ErrUnknownEvent):
		log.Info("ignored webhook event")
	case err != nil:
		response.Fail(w, r, log, err)
		return
	default:
		log.Info("webhook processed successfully")
	}
	w.WriteHeader(http.StatusOK)
}
