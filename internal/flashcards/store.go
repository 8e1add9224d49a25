package flashcards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/models"
	"github.com/patente-app/backend/internal/scoring"
)

const progressCols = `id, user_id, translation_id, score, attempts, last_attempt_at, created_at, updated_at`

// withProgress selects every translation column plus one user's record.
// Its single placeholder is the user id.
const withProgress = `
	SELECT t.id, t.text_it, t.text_en, t.text_fa, t.created_at, t.updated_at,
	       p.score, p.attempts, p.last_attempt_at
	FROM translations t
	LEFT JOIN user_translation_progress p ON p.translation_id = t.id AND p.user_id = ?`

// Store persists per-user flashcard progress.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListEligibleTranslationIDs(ctx context.Context, userID int64, maxScore *int) ([]int64, error) {
	query := `SELECT t.id FROM translations t
		LEFT JOIN user_translation_progress p ON p.translation_id = t.id AND p.user_id = ?`
	args := []interface{}{userID}
	if maxScore != nil {
		query += ` WHERE p.id IS NULL OR p.score <= ?`
		args = append(args, *maxScore)
	}
	query += ` ORDER BY t.id`

	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list eligible translation ids: %w", err)
	}
	return ids, nil
}

// CountByScore buckets the user's records the same way
// scoring.ComputeFlashcardAggregate does.
func (s *Store) CountByScore(ctx context.Context, userID int64) (ScoreCounts, error) {
	var c ScoreCounts
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`
		SELECT COALESCE(SUM(CASE WHEN score >= ? THEN 1 ELSE 0 END), 0) AS mastered,
		       COALESCE(SUM(CASE WHEN score = 2 THEN 1 ELSE 0 END), 0) AS score_two,
		       COALESCE(SUM(CASE WHEN score = 1 THEN 1 ELSE 0 END), 0) AS score_one
		FROM user_translation_progress WHERE user_id = ?`), scoring.MasteredScore, userID)
	if err != nil {
		return ScoreCounts{}, err
	}
	return c, nil
}

func (s *Store) ListWithProgress(ctx context.Context, userID int64, limit, offset int) ([]models.TranslationWithProgress, error) {
	rows := []models.TranslationWithProgress{}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(withProgress+` ORDER BY t.id LIMIT ? OFFSET ?`), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListResponded(ctx context.Context, userID int64) ([]models.TranslationWithProgress, error) {
	rows := []models.TranslationWithProgress{}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(withProgress+
		` WHERE p.attempts > 0 ORDER BY p.last_attempt_at DESC, t.id`), userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListProgress(ctx context.Context, userID int64) ([]models.TranslationProgress, error) {
	out := []models.TranslationProgress{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT `+progressCols+` FROM user_translation_progress WHERE user_id = ? ORDER BY translation_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list translation progress: %w", err)
	}
	return out, nil
}

func (s *Store) InTx(ctx context.Context, fn func(ProgressTx) error) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&progressTx{tx: tx})
	})
}

type progressTx struct {
	tx *sqlx.Tx
}

func (t *progressTx) GetProgress(ctx context.Context, userID, translationID int64) (*models.TranslationProgress, error) {
	var p models.TranslationProgress
	err := t.tx.GetContext(ctx, &p, t.tx.Rebind(
		`SELECT `+progressCols+` FROM user_translation_progress WHERE user_id = ? AND translation_id = ?`+database.ForUpdate(t.tx)),
		userID, translationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProgress inserts the first review or updates the locked row. A racing
// first review loses on the (user_id, translation_id) key and is retried.
func (t *progressTx) SaveProgress(ctx context.Context, p models.TranslationProgress) (models.TranslationProgress, error) {
	var err error
	if p.ID == 0 {
		err = t.tx.QueryRowxContext(ctx, t.tx.Rebind(
			`INSERT INTO user_translation_progress (user_id, translation_id, score, attempts, last_attempt_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`),
			p.UserID, p.TranslationID, p.Score, p.Attempts, p.LastAttemptAt, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
	} else {
		_, err = t.tx.ExecContext(ctx, t.tx.Rebind(
			`UPDATE user_translation_progress SET score = ?, attempts = ?, last_attempt_at = ?, updated_at = ?
			 WHERE id = ?`),
			p.Score, p.Attempts, p.LastAttemptAt, p.UpdatedAt, p.ID)
	}
	if database.IsForeignKeyViolation(err) {
		return p, fmt.Errorf("user %d or translation %d: %w", p.UserID, p.TranslationID, models.ErrNotFound)
	}
	return p, err
}
