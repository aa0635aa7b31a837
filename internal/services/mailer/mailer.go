// Package mailer ставит письма в очередь RabbitMQ и рендерит их тексты.
// Доставкой занимается отдельный процесс (см. services/sender).
package mailer

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// Publisher публикует сообщение в очередь.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// Recorder учитывает поставленные в очередь письма.
type Recorder interface {
	MailEvent(stage string, err error)
}

// QueueMailer отправляет письма через очередь.
type QueueMailer struct {
	pub     Publisher
	metrics Recorder
}

// NewQueueMailer создаёт QueueMailer. metrics может быть nil.
func NewQueueMailer(pub Publisher, metrics Recorder) *QueueMailer {
	return &QueueMailer{pub: pub, metrics: metrics}
}

// Send ставит письмо в очередь на отправку.
func (m *QueueMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	const op = "mailer.Send"
	err := m.pub.Publish(ctx, models.MailMessage{To: to, Subject: subject, HTMLBody: htmlBody})
	if m.metrics != nil {
		m.metrics.MailEvent("queued", err)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
