package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

// ConsumeVerificationToken задаёт пароль, подтверждает почту и стирает токен
// одним условным UPDATE. Коды приглашений сюда не подходят. Если токен уже
// погашен, возвращается ErrUserNotFound.
func (s *Storage) ConsumeVerificationToken(ctx context.Context, token, passwordHash string) (*models.User, error) {
	const op = "storage.ConsumeVerificationToken"
	return s.queryUser(ctx, op, `UPDATE users
		SET password_hash = $2, email_verified = TRUE, verification_token = NULL, updated_at = NOW()
		WHERE verification_token = $1 AND admin_id IS NULL
		RETURNING `+userColumns, token, passwordHash)
}

// ConfirmInvitationCode отмечает почту приглашённого пользователя подтверждённой.
// Код не стирается: он нужен для завершения профиля.
func (s *Storage) ConfirmInvitationCode(ctx context.Context, email, code string) error {
	const op = "storage.ConfirmInvitationCode"
	res, err := s.DB.ExecContext(ctx, `UPDATE users
		SET email_verified = TRUE, updated_at = NOW()
		WHERE email = $1 AND verification_token = $2 AND admin_id IS NOT NULL`, email, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// CompleteInvitation заполняет профиль приглашённого пользователя, задаёт пароль
// и стирает код приглашения одним условным UPDATE.
func (s *Storage) CompleteInvitation(ctx context.Context, email, code, name, phone, passwordHash string) (*models.User, error) {
	const op = "storage.CompleteInvitation"
	return s.queryUser(ctx, op, `UPDATE users
		SET name = $3, phone = $4, password_hash = $5, email_verified = TRUE,
		    verification_token = NULL, updated_at = NOW()
		WHERE email = $1 AND verification_token = $2 AND admin_id IS NOT NULL
		RETURNING `+userColumns, email, code, name, phone, passwordHash)
}

// SetResetToken сохраняет токен сброса пароля и срок его действия,
// заменяя предыдущий.
func (s *Storage) SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	const op = "storage.SetResetToken"
	res, err := s.DB.ExecContext(ctx, `UPDATE users
		SET reset_password_token = $2, reset_password_expires = $3, updated_at = NOW()
		WHERE id = $1`, id.String(), token, expires)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ConsumeResetToken задаёт новый пароль и стирает токен сброса, если тот
// ещё действует на момент now и учётная запись активна.
func (s *Storage) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	const op = "storage.ConsumeResetToken"
	return s.queryUser(ctx, op, `UPDATE users
		SET password_hash = $2, reset_password_token = NULL, reset_password_expires = NULL, updated_at = NOW()
		WHERE reset_password_token = $1 AND reset_password_expires > $3
		  AND email_verified AND password_hash <> ''
		RETURNING `+userColumns, token, passwordHash, now)
}
