package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// UserLookup находит пользователя по идентификатору.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PlanChecker проверяет доступ пользователя к уровню плана.
type PlanChecker interface {
	Allows(ctx context.Context, userID uuid.UUID, tier models.PlanType) (bool, error)
}

var errNoUser = apperr.New(apperr.KindUnauthenticated, "authentication required")

// RequireRole пропускает только пользователей с одной из ролей, иначе 403.
// Должен стоять после JWTMiddleware.
func RequireRole(users UserLookup, log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireRole"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				response.Fail(w, r, log, errNoUser)
				return
			}
			u, err := users.FindByID(r.Context(), userID)
			if err != nil {
				response.Fail(w, r, log, apperr.Wrap(apperr.KindUnauthenticated, "authentication required", err))
				return
			}
			if !slices.Contains(roles, u.Role) {
				response.Fail(w, r, log, apperr.New(apperr.KindForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlan пропускает только пользователей, чей план покрывает tier, иначе 403.
// Должен стоять после JWTMiddleware.
func RequirePlan(plans PlanChecker, log *slog.Logger, tier models.PlanType) func(http.Handler) http.Handler {
	return requirePlan(plans, log, func(*http.Request) models.PlanType { return tier })
}

// RequirePlanParam как RequirePlan, но уровень берётся из параметра маршрута.
func RequirePlanParam(plans PlanChecker, log *slog.Logger, param string) func(http.Handler) http.Handler {
	return requirePlan(plans, log, func(r *http.Request) models.PlanType {
		return models.PlanType(chi.URLParam(r, param))
	})
}

func requirePlan(plans PlanChecker, log *slog.Logger, tierOf func(*http.Request) models.PlanType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequirePlan"
			tier := tierOf(r)
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("tier", string(tier)),
			)

			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				response.Fail(w, r, log, errNoUser)
				return
			}
			allowed, err := plans.Allows(r.Context(), userID, tier)
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}
			if !allowed {
				response.Fail(w, r, log, apperr.New(apperr.KindForbidden, "your plan does not include this feature"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
