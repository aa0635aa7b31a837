// Package sender собирает процесс доставки писем из очереди.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/farm-manager/internal/config"
	"github.com/magabrotheeeer/farm-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/farm-manager/internal/services/sender"
)

// App потребитель очереди писем.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	sender  *senderservice.Service
	queue   string
	workers int
	logger  *slog.Logger
}

// New подключается к брокеру и объявляет очередь писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.MailExchange, []rabbitmq.QueueConfig{
		{QueueName: cfg.MailQueue, RoutingKey: cfg.MailRoutingKey},
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		conn:    conn,
		ch:      ch,
		sender:  senderservice.New(smtp.NewTransport(cfg.SMTP), cfg.SMTPPerSec, cfg.SMTPBurst, logger, nil),
		queue:   cfg.MailQueue,
		workers: cfg.MailWorkers,
		logger:  logger,
	}, nil
}

// Run обрабатывает очередь до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	deliveries, err := a.ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		a.close()
		return fmt.Errorf("app.sender.Run: %w", err)
	}
	a.logger.Info("mail consumer started", slog.String("queue", a.queue), slog.Int("workers", a.workers))

	rabbitmq.Serve(ctx, deliveries, a.workers, a.logger, a.sender.Deliver)

	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
