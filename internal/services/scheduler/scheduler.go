// Package scheduler периодически переводит просроченные планы в Expirado
// и уведомляет владельцев.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
)

// PlanExpirer истекает планы, срок которых прошёл.
type PlanExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) ([]models.ExpiredPlan, error)
}

// Mailer ставит письма в очередь.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service планировщик истечения планов.
type Service struct {
	plans    PlanExpirer
	mailer   Mailer
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// New создаёт Service.
func New(plans PlanExpirer, mailer Mailer, log *slog.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		plans:    plans,
		mailer:   mailer,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run выполняет проверку сразу и затем с заданным интервалом до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("plan expiry scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce истекает просроченные планы и отправляет письма. Возвращает число истёкших планов.
func (s *Service) RunOnce(ctx context.Context) int {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	log.Info("starting plan expiry check")
	expired, err := s.plans.ExpireDue(ctx, s.now())
	if err != nil {
		log.Error("failed to expire plans", sl.Err(err))
		return 0
	}
	if len(expired) == 0 {
		log.Info("no expired plans found")
		return 0
	}
	log.Info("plans expired", slog.Int("count", len(expired)))

	for _, p := range expired {
		mail, err := mailer.PlanExpiredEmail(p.Name, p.Type)
		if err == nil {
			err = s.mailer.Send(ctx, p.Email, mail.Subject, mail.HTML)
		}
		if err != nil {
			log.Error("failed to send plan expired email",
				slog.String("plan_id", p.PlanID.String()), sl.Email(p.Email), sl.Err(err))
		}
	}
	return len(expired)
}
