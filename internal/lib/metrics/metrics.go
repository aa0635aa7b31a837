// Package metrics регистрирует метрики Prometheus сервиса авторизации.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Исходы событий авторизации.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics набор счётчиков и гистограмм сервиса.
type Metrics struct {
	authEvents      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mailQueued      *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Account lifecycle events by type and outcome.",
		}, []string{"event", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		mailQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm",
			Subsystem: "mail",
			Name:      "messages_total",
			Help:      "Mail jobs by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
	reg.MustRegister(m.authEvents, m.requestDuration, m.mailQueued)
	return m
}

// AuthEvent учитывает событие жизненного цикла учётной записи.
func (m *Metrics) AuthEvent(event string, err error) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome(err)).Inc()
}

// MailEvent учитывает письмо на этапе stage (queued, sent).
func (m *Metrics) MailEvent(stage string, err error) {
	if m == nil {
		return
	}
	m.mailQueued.WithLabelValues(stage, outcome(err)).Inc()
}

// Middleware измеряет длительность запросов по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
