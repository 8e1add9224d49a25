package premium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/models"
)

const paymentCols = `id, user_id, session_id, amount, currency, status, created_at, updated_at`

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreatePayment(ctx context.Context, p models.Payment) (*models.Payment, error) {
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO payments (user_id, session_id, amount, currency, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		p.UserID, p.SessionID, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if database.IsForeignKeyViolation(err) {
		return nil, fmt.Errorf("user %d: %w", p.UserID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &p, nil
}

func (s *Store) GetPayment(ctx context.Context, sessionID string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT `+paymentCols+` FROM payments WHERE session_id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", sessionID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// CompletePayment marks a session paid and extends its user's premium in a
// single transaction. A session that is already paid is left untouched and
// extended is false.
func (s *Store) CompletePayment(ctx context.Context, sessionID string, now time.Time) (until time.Time, extended bool, err error) {
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		extended = false
		var p models.Payment
		err := tx.GetContext(ctx, &p, tx.Rebind(
			`SELECT `+paymentCols+` FROM payments WHERE session_id = ?`+database.ForUpdate(tx)), sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment %s: %w", sessionID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if p.Status == models.PaymentPaid {
			return nil
		}

		var current sql.NullTime
		err = tx.GetContext(ctx, &current, tx.Rebind(
			`SELECT premium_until FROM users WHERE id = ?`+database.ForUpdate(tx)), p.UserID)
		if err != nil {
			return fmt.Errorf("load premium: %w", err)
		}
		var prior *time.Time
		if current.Valid {
			prior = &current.Time
		}
		until = ExtendPremium(now, prior)

		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE users SET premium = ?, premium_until = ?, updated_at = ? WHERE id = ?`),
			true, until, now, p.UserID); err != nil {
			return fmt.Errorf("extend premium: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`),
			models.PaymentPaid, now, p.ID); err != nil {
			return fmt.Errorf("mark payment paid: %w", err)
		}
		extended = true
		return nil
	})
	return until, extended, err
}
