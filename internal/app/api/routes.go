package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/access"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/forgotpassword"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/resetpassword"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/update"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/verifyandset"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/auth/verifycode"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/health"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/subusers/complete"
	"github.com/magabrotheeeer/farm-manager/internal/http/handlers/subusers/invite"
	"github.com/magabrotheeeer/farm-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/farm-manager/internal/lib/metrics"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	authservice "github.com/magabrotheeeer/farm-manager/internal/services/auth"
	planservice "github.com/magabrotheeeer/farm-manager/internal/services/plan"

	_ "github.com/magabrotheeeer/farm-manager/docs" // swagger спецификация
)

// Routes зависимости HTTP-маршрутов.
type Routes struct {
	Log           *slog.Logger
	Auth          *authservice.Service
	Plans         *planservice.Service
	Users         middlewarectx.UserLookup
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Health        map[string]health.Pinger
	WebhookSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Routes) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		d.Metrics.Middleware,
	)

	log := d.Log
	r.Route("/auth", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(log, d.Auth).ServeHTTP)
		r.Post("/verify-and-set-password", verifyandset.New(log, d.Auth).ServeHTTP)
		r.Post("/forgot-password", forgotpassword.New(log, d.Auth).ServeHTTP)
		r.Post("/reset-password", resetpassword.New(log, d.Auth).ServeHTTP)
		r.Post("/login", login.New(log, d.Auth).ServeHTTP)
		r.Post("/verify-code", verifycode.New(log, d.Auth).ServeHTTP)
		r.Post("/sub-users/complete", complete.New(log, d.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Auth, log))
			r.Put("/update", update.New(log, d.Auth).ServeHTTP)
			r.Get("/me", me.New(log, d.Auth).ServeHTTP)
			r.Post("/logout", logout.New(log, d.Auth).ServeHTTP)
			r.With(middlewarectx.RequireRole(d.Users, log, models.RoleAdministrator)).
				Post("/sub-users", invite.New(log, d.Auth).ServeHTTP)
			r.With(middlewarectx.RequirePlanParam(d.Plans, log, "tier")).
				Get("/access/{tier}", access.New(log).ServeHTTP)
		})
	})

	// Вебхук провайдера проверяется подписью, а не токеном
	r.Post("/payments/webhook", webhook.New(log, d.Plans, d.WebhookSecret).ServeHTTP)

	r.Get("/health", health.New(log, d.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}
