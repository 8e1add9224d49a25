package corpus

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

const (
	questionCols    = `id, text, text_fa, image, answer, parent_number, question_number, translation_ids, created_at, updated_at`
	translationCols = `id, text_it, text_en, text_fa, created_at, updated_at`
)

// Store is the read side of the question and translation corpus, plus the
// admin and batch-job writes that maintain it.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ── Counts ──────────────────────────────────────────────

func (s *Store) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM questions`); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *Store) CountTranslations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM translations`); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}

// ── Questions ───────────────────────────────────────────

func (s *Store) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	err := s.db.GetContext(ctx, &q, s.db.Rebind(`SELECT `+questionCols+` FROM questions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get question %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

// GetQuestionsByIDs returns the questions that exist among ids, in no particular order.
func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []int64) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+questionCols+` FROM questions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build question lookup: %w", err)
	}
	var out []models.Question
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get questions by ids: %w", err)
	}
	return out, nil
}

func (s *Store) ListQuestions(ctx context.Context, limit, offset int) ([]models.Question, error) {
	var out []models.Question
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT `+questionCols+` FROM questions ORDER BY parent_number, question_number, id LIMIT ? OFFSET ?`),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return out, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q models.Question) (*models.Question, error) {
	now := time.Now().UTC()
	if q.TranslationIDs == nil {
		q.TranslationIDs = models.IDSet{}
	}
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO questions (text, text_fa, image, answer, parent_number, question_number, translation_ids, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		q.Text, q.TextFa, q.Image, q.Answer, q.ParentNumber, q.QuestionNumber, q.TranslationIDs, now, now,
	).Scan(&q.ID)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	q.CreatedAt, q.UpdatedAt = now, now
	return &q, nil
}

// UpdateQuestion rewrites the editable fields. The cross-reference set is
// left to the batch job.
func (s *Store) UpdateQuestion(ctx context.Context, q models.Question) (*models.Question, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE questions SET text = ?, text_fa = ?, image = ?, answer = ?, parent_number = ?, question_number = ?, updated_at = ?
		 WHERE id = ?`),
		q.Text, q.TextFa, q.Image, q.Answer, q.ParentNumber, q.QuestionNumber, time.Now().UTC(), q.ID,
	)
	if err := checkAffected(res, err, "update question", q.ID); err != nil {
		return nil, err
	}
	return s.GetQuestion(ctx, q.ID)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM questions WHERE id = ?`), id)
	return checkAffected(res, err, "delete question", id)
}

// UpsertQuestion inserts or updates a question keyed by its position in the
// official booklet (parent_number, question_number).
func (s *Store) UpsertQuestion(ctx context.Context, q models.Question) (created bool, err error) {
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		created = false
		var id int64
		err := tx.GetContext(ctx, &id, tx.Rebind(
			`SELECT id FROM questions WHERE parent_number = ? AND question_number = ?`),
			q.ParentNumber, q.QuestionNumber)
		now := time.Now().UTC()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
			_, err = tx.ExecContext(ctx, tx.Rebind(
				`INSERT INTO questions (text, text_fa, image, answer, parent_number, question_number, translation_ids, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, '[]', ?, ?)`),
				q.Text, q.TextFa, q.Image, q.Answer, q.ParentNumber, q.QuestionNumber, now, now)
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE questions SET text = ?, text_fa = COALESCE(?, text_fa), image = COALESCE(?, image), answer = ?, updated_at = ?
			 WHERE id = ?`),
			q.Text, q.TextFa, q.Image, q.Answer, now, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert question %d.%d: %w", q.ParentNumber, q.QuestionNumber, err)
	}
	return created, nil
}

// ── Cross-reference and translation jobs ────────────────

// ListQuestionTexts returns every question's id, text and current
// cross-reference set, for the cross-reference job.
func (s *Store) ListQuestionTexts(ctx context.Context) ([]models.Question, error) {
	var out []models.Question
	err := s.db.SelectContext(ctx, &out, `SELECT id, text, translation_ids FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list question texts: %w", err)
	}
	return out, nil
}

func (s *Store) SetTranslationIDs(ctx context.Context, questionID int64, ids models.IDSet) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE questions SET translation_ids = ?, updated_at = ? WHERE id = ?`),
		ids, time.Now().UTC(), questionID)
	return checkAffected(res, err, "set translation ids", questionID)
}

// ListQuestionsMissingFarsi returns up to limit questions without a Persian text.
func (s *Store) ListQuestionsMissingFarsi(ctx context.Context, limit int) ([]models.Question, error) {
	var out []models.Question
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT `+questionCols+` FROM questions
		 WHERE text_fa IS NULL OR TRIM(text_fa) = ''
		 ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list questions missing farsi: %w", err)
	}
	return out, nil
}

func (s *Store) SetQuestionFarsi(ctx context.Context, questionID int64, text string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE questions SET text_fa = ?, updated_at = ? WHERE id = ?`),
		text, time.Now().UTC(), questionID)
	return checkAffected(res, err, "set question farsi", questionID)
}

// ── Translations ────────────────────────────────────────

func (s *Store) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	var t models.Translation
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+translationCols+` FROM translations WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get translation %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get translation: %w", err)
	}
	return &t, nil
}

// GetTranslationsByIDs returns the translations that exist among ids, ordered by id.
func (s *Store) GetTranslationsByIDs(ctx context.Context, ids []int64) ([]models.Translation, error) {
	if len(ids) == 0 {
		return []models.Translation{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+translationCols+` FROM translations WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build translation lookup: %w", err)
	}
	var out []models.Translation
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get translations by ids: %w", err)
	}
	return out, nil
}

func (s *Store) ListTranslations(ctx context.Context) ([]models.Translation, error) {
	out := []models.Translation{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+translationCols+` FROM translations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	return out, nil
}

// ListPhrases returns the Italian side of every translation.
func (s *Store) ListPhrases(ctx context.Context) ([]models.Phrase, error) {
	var out []models.Phrase
	if err := s.db.SelectContext(ctx, &out, `SELECT id, text_it FROM translations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	return out, nil
}

func (s *Store) CreateTranslation(ctx context.Context, t models.Translation) (*models.Translation, error) {
	now := time.Now().UTC()
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO translations (text_it, text_en, text_fa, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		t.TextIT, t.TextEN, t.TextFA, now, now,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("create translation: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return &t, nil
}

func (s *Store) UpdateTranslation(ctx context.Context, t models.Translation) (*models.Translation, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE translations SET text_it = ?, text_en = ?, text_fa = ?, updated_at = ? WHERE id = ?`),
		t.TextIT, t.TextEN, t.TextFA, time.Now().UTC(), t.ID)
	if err := checkAffected(res, err, "update translation", t.ID); err != nil {
		return nil, err
	}
	return s.GetTranslation(ctx, t.ID)
}

func (s *Store) DeleteTranslation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM translations WHERE id = ?`), id)
	return checkAffected(res, err, "delete translation", id)
}

// UpsertTranslation inserts or updates a translation keyed by its Italian text.
func (s *Store) UpsertTranslation(ctx context.Context, t models.Translation) (created bool, err error) {
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		created = false
		var id int64
		err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM translations WHERE text_it = ?`), t.TextIT)
		now := time.Now().UTC()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
			_, err = tx.ExecContext(ctx, tx.Rebind(
				`INSERT INTO translations (text_it, text_en, text_fa, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
				t.TextIT, t.TextEN, t.TextFA, now, now)
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE translations SET text_en = ?, text_fa = ?, updated_at = ? WHERE id = ?`),
			t.TextEN, t.TextFA, now, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert translation %q: %w", t.TextIT, err)
	}
	return created, nil
}

func checkAffected(res sql.Result, err error, op string, id int64) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, models.ErrNotFound)
	}
	return nil
}
