// Package sender доставляет письма из очереди через SMTP.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/lib/smtp"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// ErrBadMessage сообщение из очереди нельзя разобрать. Повторять его бессмысленно.
var ErrBadMessage = errors.New("malformed mail message")

// Recorder учитывает отправленные письма.
type Recorder interface {
	MailEvent(stage string, err error)
}

// Service отправляет письма, ограничивая частоту обращений к SMTP серверу.
type Service struct {
	transport smtp.Dialer
	limiter   *rate.Limiter
	log       *slog.Logger
	metrics   Recorder
	now       func() time.Time
}

// New создаёт Service. perSecond <= 0 снимает ограничение частоты.
func New(transport smtp.Dialer, perSecond float64, burst int, log *slog.Logger, metrics Recorder) *Service {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Service{
		transport: transport,
		limiter:   rate.NewLimiter(limit, burst),
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Deliver разбирает задание из очереди и отправляет письмо.
// Испорченные сообщения записываются в лог и подтверждаются, чтобы
// не возвращаться в очередь бесконечно.
func (s *Service) Deliver(ctx context.Context, body []byte) error {
	const op = "sender.Deliver"
	log := s.log.With(slog.String("op", op))

	var msg models.MailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("dropping message", sl.Err(fmt.Errorf("%w: %v", ErrBadMessage, err)))
		return nil
	}
	if msg.To == "" {
		log.Error("dropping message", sl.Err(fmt.Errorf("%w: empty recipient", ErrBadMessage)))
		return nil
	}

	err := s.Send(ctx, msg)
	if s.metrics != nil {
		s.metrics.MailEvent("sent", err)
	}
	if err != nil {
		log.Error("failed to send email", sl.Email(msg.To), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("email sent", sl.Email(msg.To))
	return nil
}

// Send отправляет одно письмо.
func (s *Service) Send(ctx context.Context, msg models.MailMessage) error {
	const op = "sender.Send"
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	from := s.transport.From()
	raw := smtp.BuildMessage(from, msg.To, msg.Subject, msg.HTMLBody, s.now())
	if err := smtp.Send(client, from, msg.To, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
