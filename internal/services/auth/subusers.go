package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/password"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// InviteInput приглашение субпользователя.
type InviteInput struct {
	Email       string
	Role        models.Role
	PropertyIDs []uuid.UUID
}

// PreRegisterSubUser создаёт приглашённого пользователя с ролью и набором
// объектов администратора и отправляет ему код приглашения.
func (s *Service) PreRegisterSubUser(ctx context.Context, adminID uuid.UUID, in InviteInput) (msg string, err error) {
	const op = "auth.PreRegisterSubUser"
	defer func() { s.record("invite", err) }()

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	if in.Role != models.RoleManager && in.Role != models.RoleEmployee {
		return "", apperr.Validation("role must be MANAGER or EMPLOYEE")
	}
	propertyIDs := uniqueIDs(in.PropertyIDs)
	if len(propertyIDs) == 0 {
		return "", apperr.Validation("propriedades is required")
	}

	admin, err := s.store.FindByID(ctx, adminID)
	if isNotFound(err) {
		return "", apperr.New(apperr.KindUnauthenticated, "user no longer exists")
	}
	if err != nil {
		return "", internal(op, err)
	}
	if admin.Role != models.RoleAdministrator || admin.IsSubUser() {
		return "", apperr.New(apperr.KindForbidden, "only administrators can invite users")
	}

	owned, err := s.store.CountOwnedProperties(ctx, adminID, propertyIDs)
	if err != nil {
		return "", internal(op, err)
	}
	if owned != len(propertyIDs) {
		return "", apperr.Validation("propriedades contains unknown properties")
	}

	_, err = s.store.FindByEmail(ctx, email)
	if err == nil {
		return "", apperr.Conflict("email already registered")
	}
	if !isNotFound(err) {
		return "", internal(op, err)
	}

	code, err := s.generate()
	if err != nil {
		return "", internal(op, err)
	}
	u := &models.User{
		ID:                uuid.New(),
		Email:             email,
		Role:              in.Role,
		AdminID:           &adminID,
		VerificationToken: &code,
	}
	err = s.store.CreateSubUser(ctx, u, propertyIDs)
	if errors.Is(err, storage.ErrEmailTaken) {
		return "", apperr.Conflict("email already registered")
	}
	if err != nil {
		return "", internal(op, err)
	}

	mail, err := mailer.InvitationEmail(u.Role, code)
	if err != nil {
		return "", internal(op, err)
	}
	if err := s.mailer.Send(ctx, u.Email, mail.Subject, mail.HTML); err != nil {
		return "", internal(op, err)
	}
	return MsgInvited, nil
}

// VerifyCode проверяет код, присланный на почту. Код приглашения переводит
// INVITED в PROFILE_PENDING, действующий токен сброса только проверяется.
// Токен подтверждения самостоятельной регистрации кодом не считается.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (msg string, err error) {
	const op = "auth.VerifyCode"
	defer func() { s.record("verify_code", err) }()

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", apperr.Validation("email and codigo are required")
	}
	invalid := apperr.New(apperr.KindInvalidToken, "invalid code")

	u, err := s.store.FindByEmail(ctx, email)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}

	switch {
	case u.IsSubUser() && tokenEqual(u.VerificationToken, code):
		if StateOf(u) != StateInvited {
			return MsgCodeVerified, nil
		}
		if err := CheckTransition(StateInvited, StateProfilePending); err != nil {
			return "", err
		}
		err = s.store.ConfirmInvitationCode(ctx, email, code)
		if isNotFound(err) {
			return "", invalid
		}
		if err != nil {
			return "", internal(op, err)
		}
		return MsgCodeVerified, nil
	case tokenEqual(u.ResetPasswordToken, code) && ResetStateOf(u, s.now()) == ResetRequested:
		return MsgCodeVerified, nil
	default:
		return "", invalid
	}
}

// CompleteProfileInput данные второго шага приглашения.
type CompleteProfileInput struct {
	Email           string
	Code            string
	Name            string
	Phone           string
	Password        string
	ConfirmPassword string
}

// CompleteSubUserProfile заполняет профиль приглашённого пользователя, задаёт
// пароль и переводит учётную запись в ACTIVE. Отказ ничего не меняет.
func (s *Service) CompleteSubUserProfile(ctx context.Context, in CompleteProfileInput) (msg string, err error) {
	const op = "auth.CompleteSubUserProfile"
	defer func() { s.record("complete_profile", err) }()

	email := strings.TrimSpace(in.Email)
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if email == "" || code == "" || name == "" || strings.TrimSpace(in.Phone) == "" {
		return "", apperr.Validation("email, codigo, nome and telefone are required")
	}
	if err := checkPasswordPair(in.Password, in.ConfirmPassword); err != nil {
		return "", err
	}
	if err := password.ValidateStrength(in.Password); err != nil {
		return "", apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	phoneNumber, err := s.normalizePhone(in.Phone)
	if err != nil {
		return "", err
	}

	invalid := apperr.New(apperr.KindInvalidToken, "invalid code")
	u, err := s.store.FindByEmail(ctx, email)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}
	if !u.IsSubUser() || !tokenEqual(u.VerificationToken, code) {
		return "", invalid
	}
	if err := CheckTransition(StateOf(u), StateActive); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", internal(op, err)
	}
	_, err = s.store.CompleteInvitation(ctx, email, code, name, phoneNumber, hash)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}
	return MsgProfileCompleted, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
