package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/farm-manager/internal/lib/password"
	"github.com/magabrotheeeer/farm-manager/internal/lib/photostore"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// Login проверяет пароль и выдаёт токен сессии вместе с пользователем и его планами.
func (s *Service) Login(ctx context.Context, email, pass string) (u *models.User, token string, err error) {
	const op = "auth.Login"
	defer func() { s.record("login", err) }()

	email = strings.TrimSpace(email)
	if email == "" || pass == "" {
		return nil, "", apperr.Validation("email and senha are required")
	}

	u, err = s.store.FindByEmail(ctx, email)
	if isNotFound(err) {
		return nil, "", apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, "", internal(op, err)
	}
	if StateOf(u) != StateActive {
		return nil, "", apperr.New(apperr.KindUnverified, "email not verified")
	}

	err = s.hasher.Compare(u.PasswordHash, pass)
	if errors.Is(err, password.ErrMismatch) {
		return nil, "", apperr.New(apperr.KindInvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return nil, "", internal(op, err)
	}

	return s.session(ctx, op, u)
}

func (s *Service) session(ctx context.Context, op string, u *models.User) (*models.User, string, error) {
	token, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		return nil, "", internal(op, err)
	}
	out, err := s.withPlans(ctx, u)
	if err != nil {
		return nil, "", internal(op, err)
	}
	return out, token, nil
}

// Me возвращает текущего пользователя с действующими планами.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "auth.Me"
	u, err := s.store.FindByID(ctx, userID)
	if isNotFound(err) {
		return nil, apperr.New(apperr.KindUnauthenticated, "user no longer exists")
	}
	if err != nil {
		return nil, internal(op, err)
	}
	out, err := s.withPlans(ctx, u)
	if err != nil {
		return nil, internal(op, err)
	}
	return out, nil
}

// ProfileInput частичное обновление профиля: nil поля не меняются.
// Photo может быть data URL, тогда фотография загружается в хранилище.
type ProfileInput struct {
	Name  *string
	Email *string
	Phone *string
	Photo *string
}

// UpdateProfile записывает переданные поля и выдаёт новый токен сессии.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (u *models.User, token string, err error) {
	const op = "auth.UpdateProfile"
	defer func() { s.record("update_profile", err) }()

	upd, err := s.profileUpdate(ctx, userID, in)
	if err != nil {
		return nil, "", err
	}

	err = s.store.UpdateProfile(ctx, userID, upd)
	if errors.Is(err, storage.ErrEmailTaken) {
		return nil, "", apperr.Conflict("email already registered")
	}
	if err != nil {
		return nil, "", internal(op, err)
	}

	u, err = s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, "", internal(op, err)
	}
	return s.session(ctx, op, u)
}

func (s *Service) profileUpdate(ctx context.Context, userID uuid.UUID, in ProfileInput) (models.ProfileUpdate, error) {
	const op = "auth.profileUpdate"
	var upd models.ProfileUpdate
	if in.Name == nil && in.Email == nil && in.Phone == nil && in.Photo == nil {
		return upd, apperr.Validation("nothing to update")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return upd, apperr.Validation("nome must not be empty")
		}
		upd.Name = &name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return upd, apperr.Validation("email must not be empty")
		}
		upd.Email = &email
	}
	if in.Phone != nil {
		normalized, err := s.normalizePhone(*in.Phone)
		if err != nil {
			return upd, err
		}
		upd.Phone = &normalized
	}
	if in.Photo != nil {
		photo := *in.Photo
		if s.photos != nil && photo != "" {
			saved, err := s.photos.Save(ctx, userID, photo)
			switch {
			case errors.Is(err, photostore.ErrUnsupportedType),
				errors.Is(err, photostore.ErrTooLarge),
				errors.Is(err, photostore.ErrMalformed):
				return upd, apperr.Wrap(apperr.KindValidation, "invalid fotoperfil", err)
			case err != nil:
				return upd, internal(op, err)
			}
			photo = saved
		}
		upd.Photo = &photo
	}
	return upd, nil
}

// ValidateToken проверяет токен сессии и список отозванных сессий.
func (s *Service) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	const op = "auth.ValidateToken"
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "invalid or expired token", err)
	}
	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, internal(op, err)
		}
		if revoked {
			return nil, apperr.New(apperr.KindUnauthenticated, "session has been revoked")
		}
	}
	return claims, nil
}

// Logout отзывает сессию до истечения срока действия её токена.
func (s *Service) Logout(ctx context.Context, token string) (msg string, err error) {
	const op = "auth.Logout"
	defer func() { s.record("logout", err) }()

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnauthenticated, "invalid or expired token", err)
	}
	if s.denylist == nil || claims.ExpiresAt == nil {
		return MsgLoggedOut, nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return "", internal(op, err)
	}
	return MsgLoggedOut, nil
}
