package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

const userColumns = `id, name, email, phone, photo, password_hash, email_verified,
	verification_token, reset_password_token, reset_password_expires,
	role, admin_id, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                    models.User
		role                 string
		verificationToken    sql.NullString
		resetPasswordToken   sql.NullString
		resetPasswordExpires sql.NullTime
		adminID              uuid.NullUUID
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Photo, &u.PasswordHash, &u.EmailVerified,
		&verificationToken, &resetPasswordToken, &resetPasswordExpires,
		&role, &adminID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if verificationToken.Valid {
		u.VerificationToken = &verificationToken.String
	}
	if resetPasswordToken.Valid {
		u.ResetPasswordToken = &resetPasswordToken.String
	}
	if resetPasswordExpires.Valid {
		u.ResetPasswordExpires = &resetPasswordExpires.Time
	}
	if adminID.Valid {
		u.AdminID = &adminID.UUID
	}
	return &u, nil
}

func (s *Storage) queryUser(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// FindByEmail возвращает пользователя по адресу почты.
func (s *Storage) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.FindByEmail"
	return s.queryUser(ctx, op, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID возвращает пользователя вместе с доступными ему объектами.
func (s *Storage) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.FindByID"
	u, err := s.queryUser(ctx, op, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT property_id FROM user_properties WHERE user_id = $1 ORDER BY property_id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		u.AccessibleProperties = append(u.AccessibleProperties, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByVerificationToken возвращает пользователя с данным токеном подтверждения.
func (s *Storage) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	const op = "storage.FindByVerificationToken"
	return s.queryUser(ctx, op, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

// FindByResetToken возвращает пользователя с действующим токеном сброса.
// Истёкший токен считается отсутствующим.
func (s *Storage) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	const op = "storage.FindByResetToken"
	return s.queryUser(ctx, op, `SELECT `+userColumns+` FROM users
		WHERE reset_password_token = $1 AND reset_password_expires > $2`, token, now)
}

// CreateUser сохраняет пользователя и, если задан, его пробный план в одной транзакции.
func (s *Storage) CreateUser(ctx context.Context, u *models.User, trial *models.Plan) error {
	const op = "storage.CreateUser"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertUser(ctx, tx, u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if trial != nil {
		if err := insertPlan(ctx, tx, trial); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateSubUser сохраняет приглашённого пользователя и его области доступа.
func (s *Storage) CreateSubUser(ctx context.Context, u *models.User, propertyIDs []uuid.UUID) error {
	const op = "storage.CreateSubUser"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertUser(ctx, tx, u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, pid := range propertyIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_properties (user_id, property_id) VALUES ($1, $2)`,
			u.ID.String(), pid.String()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	u.AccessibleProperties = propertyIDs
	return nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u *models.User) error {
	query := `INSERT INTO users (id, name, email, phone, photo, password_hash, email_verified,
			      verification_token, role, admin_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		u.ID.String(), u.Name, u.Email, u.Phone, u.Photo, u.PasswordHash, u.EmailVerified,
		u.VerificationToken, string(u.Role), nullableUUID(u.AdminID),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// UpdateProfile записывает только заданные поля профиля.
func (s *Storage) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) error {
	const op = "storage.UpdateProfile"
	if upd.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	add("name", upd.Name)
	add("email", upd.Email)
	add("phone", upd.Phone)
	add("photo", upd.Photo)
	args = append(args, id.String())

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `, updated_at = NOW()
		WHERE id = $` + strconv.Itoa(len(args))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
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

// CountOwnedProperties считает, сколько из переданных объектов принадлежит владельцу.
func (s *Storage) CountOwnedProperties(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int, error) {
	const op = "storage.CountOwnedProperties"
	if len(ids) == 0 {
		return 0, nil
	}

	args := []any{ownerID.String()}
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.String())
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}
	query := `SELECT COUNT(DISTINCT id) FROM properties
		WHERE owner_id = $1 AND id IN (` + strings.Join(placeholders, ", ") + `)`

	var count int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
