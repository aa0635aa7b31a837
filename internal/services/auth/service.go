// Package auth реализует жизненный цикл учётной записи: регистрацию,
// подтверждение почты, вход, приглашение субпользователей и сброс пароля.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/config"
	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/farm-manager/internal/lib/onetime"
	"github.com/magabrotheeeer/farm-manager/internal/lib/password"
	"github.com/magabrotheeeer/farm-manager/internal/lib/phone"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// Сообщения успешных операций.
const (
	MsgRegistered       = "registration accepted, check your email to verify the account"
	MsgPasswordSet      = "email verified and password set, you can now log in"
	MsgResetRequested   = "if the email is registered, a password reset link has been sent"
	MsgPasswordReset    = "password has been reset"
	MsgCodeVerified     = "code verified"
	MsgInvited          = "invitation sent"
	MsgProfileCompleted = "profile completed, you can now log in"
	MsgLoggedOut        = "logged out"
)

// Store хранилище учётных записей.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User, trial *models.Plan) error
	CreateSubUser(ctx context.Context, u *models.User, propertyIDs []uuid.UUID) error
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) error
	ConsumeVerificationToken(ctx context.Context, token, passwordHash string) (*models.User, error)
	ConfirmInvitationCode(ctx context.Context, email, code string) error
	CompleteInvitation(ctx context.Context, email, code, name, phone, passwordHash string) (*models.User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error)
	CountOwnedProperties(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int, error)
	ListPlans(ctx context.Context, userID uuid.UUID) ([]models.Plan, error)
}

// TokenMaker выпускает и проверяет токены сессии.
type TokenMaker interface {
	GenerateToken(userID uuid.UUID) (string, error)
	ParseToken(token string) (*jwt.Claims, error)
}

// Denylist список отозванных сессий.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Mailer ставит письма в очередь.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// PhotoStore сохраняет фотографию профиля и возвращает её адрес.
type PhotoStore interface {
	Save(ctx context.Context, userID uuid.UUID, photo string) (string, error)
}

// Recorder учитывает события аутентификации.
type Recorder interface {
	AuthEvent(event string, err error)
}

// Deps зависимости сервиса. Denylist, Photos и Metrics необязательны.
type Deps struct {
	Store    Store
	Tokens   TokenMaker
	Mailer   Mailer
	Denylist Denylist
	Photos   PhotoStore
	Metrics  Recorder
}

// Service управляет учётными записями и сессиями.
type Service struct {
	store    Store
	tokens   TokenMaker
	mailer   Mailer
	denylist Denylist
	photos   PhotoStore
	metrics  Recorder
	hasher   *password.Hasher
	phones   *phone.Normalizer
	log      *slog.Logger

	frontendURL   string
	resetTokenTTL time.Duration
	trialPeriod   time.Duration

	generate onetime.Generator
	now      func() time.Time
}

// NewService создаёт Service.
func NewService(deps Deps, cfg config.Auth, log *slog.Logger) *Service {
	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		store:         deps.Store,
		tokens:        deps.Tokens,
		mailer:        deps.Mailer,
		denylist:      deps.Denylist,
		photos:        deps.Photos,
		metrics:       deps.Metrics,
		hasher:        password.NewHasher(cfg.BcryptCost),
		phones:        phone.NewNormalizer(cfg.PhoneRegion),
		log:           log,
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
		resetTokenTTL: resetTTL,
		trialPeriod:   cfg.TrialPeriod,
		generate:      onetime.Generate,
		now:           time.Now,
	}
}

func (s *Service) record(event string, err error) {
	if s.metrics != nil {
		s.metrics.AuthEvent(event, err)
	}
}

// internal оборачивает непредвиденную ошибку, сохраняя цепочку для логов.
func internal(op string, err error) error {
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func (s *Service) link(path, token string) string {
	return s.frontendURL + path + "?token=" + token
}

func (s *Service) normalizePhone(raw string) (string, error) {
	normalized, err := s.phones.Normalize(raw)
	if errors.Is(err, phone.ErrInvalid) {
		return "", apperr.Validation("invalid phone number")
	}
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// withPlans подгружает действующие планы: субпользователь видит планы администратора.
func (s *Service) withPlans(ctx context.Context, u *models.User) (*models.User, error) {
	owner := u.ID
	if u.AdminID != nil {
		owner = *u.AdminID
	}
	plans, err := s.store.ListPlans(ctx, owner)
	if err != nil {
		return nil, err
	}
	u.Plans = plans
	return u.Sanitized(), nil
}

func tokenEqual(stored *string, given string) bool {
	if stored == nil || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(given)) == 1
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrUserNotFound)
}
