// Package api собирает HTTP-сервис учётных записей: хранилище, кэш,
// очередь писем, сервисы и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/farm-manager/internal/cache"
	"github.com/magabrotheeeer/farm-manager/internal/config"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/health"
	"github.com/magabrotheeeer/farm-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/farm-manager/internal/lib/metrics"
	"github.com/magabrotheeeer/farm-manager/internal/lib/photostore"
	"github.com/magabrotheeeer/farm-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/migrations"
	authservice "github.com/magabrotheeeer/farm-manager/internal/services/auth"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
	planservice "github.com/magabrotheeeer/farm-manager/internal/services/plan"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервис со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключается к зависимостям, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := &App{logger: logger, db: db}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
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

	photos, err := photostore.New(ctx, cfg.S3)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mail := mailer.NewQueueMailer(rabbitmq.NewPublisher(a.ch, cfg.MailExchange, cfg.MailRoutingKey), m)
	authService := authservice.NewService(authservice.Deps{
		Store:    db,
		Tokens:   jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Mailer:   mail,
		Denylist: a.cache,
		Photos:   photos,
		Metrics:  m,
	}, cfg.Auth, logger)
	planService := planservice.NewService(db, a.cache, mail, logger, cfg.PlanCacheTTL, cfg.PlanDuration)

	router := chi.NewRouter()
	RegisterRoutes(router, Routes{
		Log:      logger,
		Auth:     authService,
		Plans:    planService,
		Users:    db,
		Metrics:  m,
		Gatherer: reg,
		Health: map[string]health.Pinger{
			"postgres": db,
			"redis":    a.cache,
		},
		WebhookSecret: cfg.WebhookSecret,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер и
// закрывает соединения.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
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
