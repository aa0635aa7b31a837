// Package plan определяет доступ по тарифному плану: достаточность уровня,
// эффективные планы субпользователей, применение платежей и истечение планов.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// Store хранилище пользователей и планов.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListPlans(ctx context.Context, userID uuid.UUID) ([]models.Plan, error)
	SavePaymentPlan(ctx context.Context, p *models.Plan) error
	ExpirePlans(ctx context.Context, now time.Time) ([]models.ExpiredPlan, error)
}

// Cache кэш эффективных планов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Mailer ставит письма в очередь.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Sufficient сообщает, даёт ли набор планов доступ к уровню required.
// Активный gold подходит для любого уровня, активный base только для base.
func Sufficient(plans []models.Plan, required models.PlanType) bool {
	for _, p := range plans {
		if !p.Active() {
			continue
		}
		if p.Type == models.PlanGold || p.Type == required {
			return true
		}
	}
	return false
}

// Service работает с планами пользователей.
type Service struct {
	store        Store
	cache        Cache
	mailer       Mailer
	log          *slog.Logger
	cacheTTL     time.Duration
	planDuration time.Duration
	now          func() time.Time
}

// NewService создаёт Service. cache может быть nil, тогда планы всегда читаются из базы.
func NewService(store Store, cache Cache, mailer Mailer, log *slog.Logger, cacheTTL, planDuration time.Duration) *Service {
	return &Service{
		store:        store,
		cache:        cache,
		mailer:       mailer,
		log:          log,
		cacheTTL:     cacheTTL,
		planDuration: planDuration,
		now:          time.Now,
	}
}

func plansKey(ownerID uuid.UUID) string {
	return "plans:" + ownerID.String()
}

func ownerKey(userID uuid.UUID) string {
	return "plans:owner:" + userID.String()
}

// owner возвращает пользователя, чьи планы действуют для userID:
// администратора для субпользователя, иначе самого пользователя.
func (s *Service) owner(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	const op = "plan.owner"
	if s.cache != nil {
		var cached uuid.UUID
		found, err := s.cache.Get(ctx, ownerKey(userID), &cached)
		if err != nil {
			s.log.Warn("plan owner cache read failed", slog.String("op", op), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	owner := u.ID
	if u.AdminID != nil {
		owner = *u.AdminID
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, ownerKey(userID), owner, 24*time.Hour); err != nil {
			s.log.Warn("plan owner cache write failed", slog.String("op", op), sl.Err(err))
		}
	}
	return owner, nil
}

// EffectivePlans возвращает планы, действующие для пользователя.
// Субпользователи наследуют планы своего администратора.
func (s *Service) EffectivePlans(ctx context.Context, userID uuid.UUID) ([]models.Plan, error) {
	const op = "plan.EffectivePlans"
	owner, err := s.owner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.plansOf(ctx, owner)
}

func (s *Service) plansOf(ctx context.Context, owner uuid.UUID) ([]models.Plan, error) {
	const op = "plan.plansOf"
	if s.cache != nil {
		var cached []models.Plan
		found, err := s.cache.Get(ctx, plansKey(owner), &cached)
		if err != nil {
			s.log.Warn("plan cache read failed", slog.String("op", op), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	plans, err := s.store.ListPlans(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, plansKey(owner), plans, s.cacheTTL); err != nil {
			s.log.Warn("plan cache write failed", slog.String("op", op), sl.Err(err))
		}
	}
	return plans, nil
}

// Allows сообщает, есть ли у пользователя доступ к уровню tier.
func (s *Service) Allows(ctx context.Context, userID uuid.UUID, tier models.PlanType) (bool, error) {
	const op = "plan.Allows"
	if !tier.Valid() {
		return false, apperr.Validation("unknown plan tier")
	}
	plans, err := s.EffectivePlans(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return Sufficient(plans, tier), nil
}

// Payment events.
const (
	EventSucceeded         = "payment.succeeded"
	EventWaitingForCapture = "payment.waiting_for_capture"
	EventCanceled          = "payment.canceled"
	EventRefunded          = "payment.refunded"
)

// ErrUnknownEvent событие платёжного провайдера не влияет на планы.
var ErrUnknownEvent = errors.New("unknown payment event")

// PaymentEvent уведомление платёжного провайдера о платеже за план.
type PaymentEvent struct {
	Event     string
	PaymentID string
	UserID    uuid.UUID
	PlanType  models.PlanType
}

func statusFor(event string) (models.PlanStatus, bool) {
	switch event {
	case EventSucceeded:
		return models.PlanStatusPaid, true
	case EventWaitingForCapture:
		return models.PlanStatusPending, true
	case EventCanceled, EventRefunded:
		return models.PlanStatusCancelled, true
	}
	return "", false
}

// ApplyPayment отражает платёж в плане пользователя и уведомляет его письмом.
// Сбой отправки письма не отменяет изменение плана.
func (s *Service) ApplyPayment(ctx context.Context, ev PaymentEvent) (*models.Plan, error) {
	const op = "plan.ApplyPayment"
	log := s.log.With(slog.String("op", op), slog.String("payment_id", ev.PaymentID))

	status, ok := statusFor(ev.Event)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownEvent, ev.Event)
	}
	if ev.PaymentID == "" {
		return nil, apperr.Validation("payment id is required")
	}
	if !ev.PlanType.Valid() {
		return nil, apperr.Validation("unknown plan tier")
	}

	u, err := s.store.FindByID(ctx, ev.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	p := &models.Plan{
		ID:          uuid.New(),
		UserID:      u.ID,
		Type:        ev.PlanType,
		Status:      status,
		ActivatedAt: now,
		PaymentID:   ev.PaymentID,
	}
	if status == models.PlanStatusPaid {
		exp := now.Add(s.planDuration)
		p.ExpiresAt = &exp
	}
	if err := s.store.SavePaymentPlan(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, u.ID)
	log.Info("plan updated from payment", slog.String("status", string(status)), slog.String("type", string(p.Type)))

	email, err := mailer.PlanStatusEmail(u.Name, p.Type, p.Status)
	if err == nil {
		err = s.mailer.Send(ctx, u.Email, email.Subject, email.HTML)
	}
	if err != nil {
		log.Error("failed to send plan status email", sl.Email(u.Email), sl.Err(err))
	}
	return p, nil
}

// ExpireDue переводит просроченные планы в Expirado и сбрасывает кэш их владельцев.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) ([]models.ExpiredPlan, error) {
	const op = "plan.ExpireDue"
	expired, err := s.store.ExpirePlans(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, e := range expired {
		s.invalidate(ctx, e.UserID)
	}
	return expired, nil
}

func (s *Service) invalidate(ctx context.Context, owner uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, plansKey(owner)); err != nil {
		s.log.Warn("plan cache invalidation failed", slog.String("owner", owner.String()), sl.Err(err))
	}
}
