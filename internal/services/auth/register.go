package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// RegisterInput данные самостоятельной регистрации.
type RegisterInput struct {
	Name  string
	Email string
	Phone string
}

// Register создаёт администратора в состоянии PRE_REGISTERED и отправляет
// письмо со ссылкой подтверждения. Сессия не выдаётся.
func (s *Service) Register(ctx context.Context, in RegisterInput) (msg string, err error) {
	const op = "auth.Register"
	defer func() { s.record("register", err) }()

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || strings.TrimSpace(in.Phone) == "" {
		return "", apperr.Validation("nome, email and telefone are required")
	}
	phoneNumber, err := s.normalizePhone(in.Phone)
	if err != nil {
		return "", err
	}

	_, err = s.store.FindByEmail(ctx, email)
	if err == nil {
		return "", apperr.Conflict("email already registered")
	}
	if !isNotFound(err) {
		return "", internal(op, err)
	}

	token, err := s.generate()
	if err != nil {
		return "", internal(op, err)
	}
	u := &models.User{
		ID:                uuid.New(),
		Name:              name,
		Email:             email,
		Phone:             phoneNumber,
		Role:              models.RoleAdministrator,
		VerificationToken: &token,
	}

	var trial *models.Plan
	if s.trialPeriod > 0 {
		now := s.now()
		expires := now.Add(s.trialPeriod)
		trial = &models.Plan{
			ID:          uuid.New(),
			UserID:      u.ID,
			Type:        models.PlanBase,
			Status:      models.PlanStatusTrial,
			ActivatedAt: now,
			ExpiresAt:   &expires,
		}
	}

	err = s.store.CreateUser(ctx, u, trial)
	if errors.Is(err, storage.ErrEmailTaken) {
		return "", apperr.Conflict("email already registered")
	}
	if err != nil {
		return "", internal(op, err)
	}

	mail, err := mailer.VerificationEmail(u.Name, s.link("/verify-email", token))
	if err != nil {
		return "", internal(op, err)
	}
	if err := s.mailer.Send(ctx, u.Email, mail.Subject, mail.HTML); err != nil {
		return "", internal(op, err)
	}
	return MsgRegistered, nil
}

// VerifyEmailAndSetPassword гасит токен подтверждения, задаёт пароль и
// переводит учётную запись в ACTIVE. Сессия не выдаётся. Код приглашения
// здесь не принимается: у приглашённых свой путь через CompleteSubUserProfile.
func (s *Service) VerifyEmailAndSetPassword(ctx context.Context, token, pass, confirm string) (msg string, err error) {
	const op = "auth.VerifyEmailAndSetPassword"
	defer func() { s.record("verify_email", err) }()

	if err := checkPasswordPair(pass, confirm); err != nil {
		return "", err
	}
	invalid := apperr.New(apperr.KindInvalidToken, "invalid token")
	if token == "" {
		return "", invalid
	}

	u, err := s.store.FindByVerificationToken(ctx, token)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}
	if u.IsSubUser() {
		return "", invalid
	}
	if err := CheckTransition(StateOf(u), StateActive); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return "", internal(op, err)
	}
	_, err = s.store.ConsumeVerificationToken(ctx, token, hash)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}
	return MsgPasswordSet, nil
}

func checkPasswordPair(pass, confirm string) error {
	if pass == "" || confirm == "" {
		return apperr.Validation("senha and confirmarSenha are required")
	}
	if pass != confirm {
		return apperr.Validation("passwords do not match")
	}
	return nil
}
