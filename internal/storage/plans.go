package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/models"
)

const planColumns = `id, user_id, type, status, activated_at, expires_at, payment_id`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func insertPlan(ctx context.Context, db execer, p *models.Plan) error {
	_, err := db.ExecContext(ctx, `INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID.String(), p.UserID.String(), string(p.Type), string(p.Status),
		p.ActivatedAt, p.ExpiresAt, nullableString(p.PaymentID))
	return err
}

// CreatePlan сохраняет план.
func (s *Storage) CreatePlan(ctx context.Context, p *models.Plan) error {
	const op = "storage.CreatePlan"
	if err := insertPlan(ctx, s.DB, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SavePaymentPlan создаёт план по платежу или обновляет существующий
// с тем же payment_id.
func (s *Storage) SavePaymentPlan(ctx context.Context, p *models.Plan) error {
	const op = "storage.SavePaymentPlan"
	_, err := s.DB.ExecContext(ctx, `INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payment_id) WHERE payment_id IS NOT NULL
		DO UPDATE SET status = EXCLUDED.status,
		              activated_at = EXCLUDED.activated_at,
		              expires_at = EXCLUDED.expires_at`,
		p.ID.String(), p.UserID.String(), string(p.Type), string(p.Status),
		p.ActivatedAt, p.ExpiresAt, p.PaymentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPlans возвращает планы пользователя, новые первыми.
func (s *Storage) ListPlans(ctx context.Context, userID uuid.UUID) ([]models.Plan, error) {
	const op = "storage.ListPlans"
	rows, err := s.DB.QueryContext(ctx, `SELECT `+planColumns+` FROM plans
		WHERE user_id = $1 ORDER BY activated_at DESC`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	plans := []models.Plan{}
	for rows.Next() {
		var (
			p         models.Plan
			planType  string
			status    string
			expiresAt sql.NullTime
			paymentID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &planType, &status, &p.ActivatedAt, &expiresAt, &paymentID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Type = models.PlanType(planType)
		p.Status = models.PlanStatus(status)
		if expiresAt.Valid {
			p.ExpiresAt = &expiresAt.Time
		}
		p.PaymentID = paymentID.String
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// ExpirePlans переводит активные планы с истёкшим сроком в Expirado
// и возвращает их вместе с контактами владельцев.
func (s *Storage) ExpirePlans(ctx context.Context, now time.Time) ([]models.ExpiredPlan, error) {
	const op = "storage.ExpirePlans"
	rows, err := s.DB.QueryContext(ctx, `UPDATE plans p
		SET status = $1
		FROM users u
		WHERE u.id = p.user_id
		  AND p.status IN ($2, $3)
		  AND p.expires_at IS NOT NULL AND p.expires_at <= $4
		RETURNING p.id, p.user_id, u.email, u.name, p.type`,
		string(models.PlanStatusExpired), string(models.PlanStatusPaid), string(models.PlanStatusTrial), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiredPlan
	for rows.Next() {
		var (
			e        models.ExpiredPlan
			planType string
		)
		if err := rows.Scan(&e.PlanID, &e.UserID, &e.Email, &e.Name, &planType); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.Type = models.PlanType(planType)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
