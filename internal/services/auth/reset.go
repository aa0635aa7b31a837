package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/farm-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/farm-manager/internal/lib/sl"
	"github.com/magabrotheeeer/farm-manager/internal/services/mailer"
)

// ForgotPassword запрашивает сброс пароля. Ответ всегда один и тот же,
// есть такой пользователь или нет. Токен выдаётся только активной учётной
// записи. Ошибки только пишутся в лог.
func (s *Service) ForgotPassword(ctx context.Context, email string) string {
	const op = "auth.ForgotPassword"
	log := s.log.With(slog.String("op", op), sl.Email(email))

	email = strings.TrimSpace(email)
	if email == "" {
		return MsgResetRequested
	}
	u, err := s.store.FindByEmail(ctx, email)
	if isNotFound(err) {
		log.Info("password reset requested for unknown email")
		s.record("forgot_password", nil)
		return MsgResetRequested
	}
	if err != nil {
		log.Error("failed to find user", sl.Err(err))
		s.record("forgot_password", err)
		return MsgResetRequested
	}
	if state := StateOf(u); state != StateActive {
		log.Info("password reset requested for inactive account", slog.String("state", string(state)))
		s.record("forgot_password", nil)
		return MsgResetRequested
	}

	token, err := s.generate()
	if err != nil {
		log.Error("failed to generate reset token", sl.Err(err))
		s.record("forgot_password", err)
		return MsgResetRequested
	}
	if err := s.store.SetResetToken(ctx, u.ID, token, s.now().Add(s.resetTokenTTL)); err != nil {
		log.Error("failed to store reset token", sl.Err(err))
		s.record("forgot_password", err)
		return MsgResetRequested
	}

	mail, err := mailer.ResetEmail(u.Name, s.link("/reset-password", token))
	if err == nil {
		err = s.mailer.Send(ctx, u.Email, mail.Subject, mail.HTML)
	}
	if err != nil {
		log.Error("failed to send reset email", sl.Err(err))
	}
	s.record("forgot_password", err)
	return MsgResetRequested
}

// ResetPassword задаёт новый пароль по действующему токену сброса и гасит токен.
func (s *Service) ResetPassword(ctx context.Context, token, pass, confirm string) (msg string, err error) {
	const op = "auth.ResetPassword"
	defer func() { s.record("reset_password", err) }()

	if err := checkPasswordPair(pass, confirm); err != nil {
		return "", err
	}
	invalid := apperr.New(apperr.KindInvalidOrExpiredToken, "invalid or expired token")
	if token == "" {
		return "", invalid
	}

	now := s.now()
	u, err := s.store.FindByResetToken(ctx, token, now)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}
	if ResetStateOf(u, now) != ResetRequested || StateOf(u) != StateActive {
		return "", invalid
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return "", internal(op, err)
	}
	_, err = s.store.ConsumeResetToken(ctx, token, hash, now)
	if isNotFound(err) {
		return "", invalid
	}
	if err != nil {
		return "", internal(op, err)
	}
	return MsgPasswordReset, nil
}
