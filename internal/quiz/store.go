package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/models"
)

const statCols = `id, user_id, question_id, correct, wrong, attempts, last_attempt_at, created_at, updated_at`

// withStats selects every question column plus one user's counters. Its
// single placeholder is the user id.
const withStats = `
	SELECT q.id, q.text, q.text_fa, q.image, q.answer, q.parent_number, q.question_number,
	       q.translation_ids, q.created_at, q.updated_at,
	       COALESCE(s.correct, 0) AS correct_count,
	       COALESCE(s.wrong, 0) AS wrong_count,
	       s.last_attempt_at AS last_attempted
	FROM questions q
	LEFT JOIN user_question_stats s ON s.question_id = q.id AND s.user_id = ?`

// Store persists per-user question stats.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// filterClause mirrors scoring.QuestionEligible in SQL.
func filterClause(filter models.StatsFilter) string {
	switch filter {
	case models.FilterCorrect:
		return `COALESCE(s.correct, 0) > 0`
	case models.FilterWrong:
		return `COALESCE(s.wrong, 0) > 0`
	case models.FilterNeverAnswered:
		return `COALESCE(s.correct, 0) = 0 AND COALESCE(s.wrong, 0) = 0`
	default:
		return `1 = 1`
	}
}

func (s *Store) ListEligibleQuestionIDs(ctx context.Context, userID int64, filter models.StatsFilter) ([]int64, error) {
	query := `SELECT q.id FROM questions q
		LEFT JOIN user_question_stats s ON s.question_id = q.id AND s.user_id = ?
		WHERE ` + filterClause(filter) + ` ORDER BY q.id`
	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("list eligible question ids: %w", err)
	}
	return ids, nil
}

func (s *Store) CountCorrectlyAnswered(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(
		`SELECT COUNT(*) FROM user_question_stats WHERE user_id = ? AND correct > 0`), userID)
	if err != nil {
		return 0, fmt.Errorf("count correctly answered: %w", err)
	}
	return n, nil
}

func (s *Store) ListQuestionsWithStats(ctx context.Context, userID int64, req models.QuestionListRequest) ([]models.QuestionWithStats, int, error) {
	where := []string{filterClause(req.Filter)}
	args := []interface{}{userID}
	if search := strings.TrimSpace(req.Search); search != "" {
		where = append(where, `LOWER(q.text) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	cond := ` WHERE ` + strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM questions q
		LEFT JOIN user_question_stats s ON s.question_id = q.id AND s.user_id = ?` + cond
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count questions with stats: %w", err)
	}

	rows := []models.QuestionWithStats{}
	pageArgs := append(args, req.PerPage, (req.Page-1)*req.PerPage)
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(withStats+cond+
		` ORDER BY q.parent_number, q.question_number, q.id LIMIT ? OFFSET ?`), pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions with stats: %w", err)
	}
	return rows, total, nil
}

func (s *Store) GetQuestionWithStats(ctx context.Context, userID, questionID int64) (*models.QuestionWithStats, error) {
	var q models.QuestionWithStats
	err := s.db.GetContext(ctx, &q, s.db.Rebind(withStats+` WHERE q.id = ?`), userID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %d: %w", questionID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question with stats: %w", err)
	}
	return &q, nil
}

func (s *Store) ListStats(ctx context.Context, userID int64) ([]models.QuestionStat, error) {
	out := []models.QuestionStat{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT `+statCols+` FROM user_question_stats WHERE user_id = ? ORDER BY question_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list question stats: %w", err)
	}
	return out, nil
}

func (s *Store) InTx(ctx context.Context, fn func(StatsTx) error) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&statsTx{tx: tx})
	})
}

type statsTx struct {
	tx *sqlx.Tx
}

func (t *statsTx) GetStat(ctx context.Context, userID, questionID int64) (*models.QuestionStat, error) {
	var st models.QuestionStat
	err := t.tx.GetContext(ctx, &st, t.tx.Rebind(
		`SELECT `+statCols+` FROM user_question_stats WHERE user_id = ? AND question_id = ?`+database.ForUpdate(t.tx)),
		userID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveStat inserts a first answer or updates the locked row. Two racing
// first answers collide on the (user_id, question_id) key and the loser's
// transaction is retried by database.WithTx.
func (t *statsTx) SaveStat(ctx context.Context, st models.QuestionStat) error {
	var err error
	if st.ID == 0 {
		_, err = t.tx.ExecContext(ctx, t.tx.Rebind(
			`INSERT INTO user_question_stats (user_id, question_id, correct, wrong, attempts, last_attempt_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			st.UserID, st.QuestionID, st.Correct, st.Wrong, st.Attempts, st.LastAttemptAt, st.CreatedAt, st.UpdatedAt)
	} else {
		_, err = t.tx.ExecContext(ctx, t.tx.Rebind(
			`UPDATE user_question_stats SET correct = ?, wrong = ?, attempts = ?, last_attempt_at = ?, updated_at = ?
			 WHERE id = ?`),
			st.Correct, st.Wrong, st.Attempts, st.LastAttemptAt, st.UpdatedAt, st.ID)
	}
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("user %d or question %d: %w", st.UserID, st.QuestionID, models.ErrNotFound)
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
