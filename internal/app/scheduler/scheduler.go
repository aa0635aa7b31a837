// Package scheduler собирает процесс истечения планов.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/farm-manager/internal/cache"
	"github.com/magabrotheeeer/farm-manager/internal/config"
	"github.com/magabrotheeeer/farm-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
	planservice "github.com/magabrotheeeer/farm-manager/internal/services/plan"
	schedulerservice "github.com/magabrotheeeer/farm-manager/internal/services/scheduler"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// App представляет приложение планировщика.
type App struct {
	scheduler *schedulerservice.Service
	db        *storage.Storage
	cache     *cache.Cache
	conn      *amqp.Connection
	ch        *amqp.Channel
	logger    *slog.Logger
}

// New подключается к базе, Redis и брокеру.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := &App{db: db, logger: logger}

	a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: cache not initialized: %w", op, err)
	}

	a.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.ch, err = rabbitmq.SetupChannel(a.conn, cfg.MailExchange, []rabbitmq.QueueConfig{
		{QueueName: cfg.MailQueue, RoutingKey: cfg.MailRoutingKey},
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mail := mailer.NewQueueMailer(rabbitmq.NewPublisher(a.ch, cfg.MailExchange, cfg.MailRoutingKey), nil)
	plans := planservice.NewService(db, a.cache, mail, logger, cfg.PlanCacheTTL, cfg.PlanDuration)
	a.scheduler = schedulerservice.New(plans, mail, logger, cfg.Scheduler.Interval)
	return a, nil
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Run(ctx)
	a.logger.Info("shutting down scheduler service")
	a.close()
	return nil
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
