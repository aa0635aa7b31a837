// Package middlewarectx содержит HTTP middleware аутентификации и авторизации.
//
// JWTMiddleware проверяет токен сессии из заголовка Authorization и кладёт
// в контекст идентификатор пользователя и сессии. RequireRole и RequirePlan
// ограничивают доступ ролью и тарифным планом.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/http/response"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/jwt"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ идентификатора пользователя в контексте.
	UserID Key = "user_id"
	// TokenID ключ идентификатора сессии (jti) в контексте.
	TokenID Key = "token_id"
	// Token ключ исходного токена сессии в контексте.
	Token Key = "token"
)

// TokenValidator проверяет токен сессии.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// BearerToken извлекает токен из заголовка вида "Bearer <token>".
// Заголовок должен состоять ровно из двух частей, схема без учёта регистра.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден и сессия не отозвана, добавляет в контекст идентификаторы
// пользователя и сессии, иначе отвечает 401 Unauthorized.
func JWTMiddleware(validator TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			claims, err := validator.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					response.Fail(w, r, log, err)
					return
				}
				response.Fail(w, r, log, apperr.Wrap(apperr.KindUnauthenticated, apperr.Message(err), err))
				return
			}
			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				response.Fail(w, r, log, apperr.Wrap(apperr.KindUnauthenticated, "invalid or expired token", err))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, userID)
			ctx = context.WithValue(ctx, TokenID, claims.ID)
			ctx = context.WithValue(ctx, Token, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext возвращает идентификатор аутентифицированного пользователя.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// TokenFromContext возвращает токен текущей сессии.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(Token).(string)
	return token, ok && token != ""
}
