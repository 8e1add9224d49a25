package quiz

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/patente-app/backend/internal/models"
	"github.com/patente-app/backend/internal/scoring"
	"github.com/patente-app/backend/internal/selection"
)

// Items is the read-only question corpus.
type Items interface {
	CountQuestions(ctx context.Context) (int, error)
	GetQuestionsByIDs(ctx context.Context, ids []int64) ([]models.Question, error)
	GetTranslationsByIDs(ctx context.Context, ids []int64) ([]models.Translation, error)
}

// Progress is the per-user answer history.
type Progress interface {
	ListEligibleQuestionIDs(ctx context.Context, userID int64, filter models.StatsFilter) ([]int64, error)
	CountCorrectlyAnswered(ctx context.Context, userID int64) (int, error)
	ListQuestionsWithStats(ctx context.Context, userID int64, req models.QuestionListRequest) ([]models.QuestionWithStats, int, error)
	GetQuestionWithStats(ctx context.Context, userID, questionID int64) (*models.QuestionWithStats, error)
	ListStats(ctx context.Context, userID int64) ([]models.QuestionStat, error)
	// InTx runs fn in one all-or-nothing transaction. fn may be re-run on a
	// write conflict.
	InTx(ctx context.Context, fn func(StatsTx) error) error
}

// StatsTx reads and writes stats inside a transaction.
type StatsTx interface {
	// GetStat returns the locked stat row, or nil if the user never answered.
	GetStat(ctx context.Context, userID, questionID int64) (*models.QuestionStat, error)
	SaveStat(ctx context.Context, stat models.QuestionStat) error
}

const (
	DefaultQuizSize = 30
	MaxQuizSize     = 200
)

type Service struct {
	items    Items
	progress Progress
	picker   *selection.Picker
	now      func() time.Time
}

func NewService(items Items, progress Progress, picker *selection.Picker) *Service {
	if picker == nil {
		picker = selection.NewPicker()
	}
	return &Service{
		items:    items,
		progress: progress,
		picker:   picker,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ── Quiz Generation ─────────────────────────────────────

// GenerateQuiz draws up to count questions uniformly without replacement from
// those passing filter. Fewer eligible questions than count is not an error.
func (s *Service) GenerateQuiz(ctx context.Context, userID int64, count int, filter models.StatsFilter) ([]models.QuizQuestion, error) {
	if count <= 0 {
		count = DefaultQuizSize
	}
	if count > MaxQuizSize {
		count = MaxQuizSize
	}

	eligible, err := s.progress.ListEligibleQuestionIDs(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list eligible questions: %w", err)
	}
	picked := s.picker.Sample(eligible, count)
	if len(picked) == 0 {
		return []models.QuizQuestion{}, nil
	}

	questions, err := s.items.GetQuestionsByIDs(ctx, picked)
	if err != nil {
		return nil, fmt.Errorf("load quiz questions: %w", err)
	}
	byID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ordered := make([]models.Question, 0, len(picked))
	for _, id := range picked {
		// A question deleted between the two reads is dropped.
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return s.enrich(ctx, ordered)
}

// enrich composes each question with the translation records it
// cross-references, resolving all of them in one lookup.
func (s *Service) enrich(ctx context.Context, questions []models.Question) ([]models.QuizQuestion, error) {
	var all []int64
	for _, q := range questions {
		all = append(all, q.TranslationIDs...)
	}
	translations, err := s.items.GetTranslationsByIDs(ctx, models.NewIDSet(all...))
	if err != nil {
		return nil, fmt.Errorf("load cross-referenced translations: %w", err)
	}
	byID := make(map[int64]models.Translation, len(translations))
	for _, t := range translations {
		byID[t.ID] = t
	}

	out := make([]models.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		view := models.QuizQuestion{
			ID:             q.ID,
			Text:           q.Text,
			TextFa:         q.TextFa,
			Image:          q.Image,
			ParentNumber:   q.ParentNumber,
			QuestionNumber: q.QuestionNumber,
			Translations:   []models.Translation{},
		}
		for _, id := range models.NewIDSet(q.TranslationIDs...) {
			if t, ok := byID[id]; ok {
				view.Translations = append(view.Translations, t)
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// ── Quiz Submission ─────────────────────────────────────

// SubmitQuiz grades a batch and applies every counter update in a single
// transaction. answers[i] answers questionIDs[i]; an empty or missing entry
// skips that question without counting it wrong.
func (s *Service) SubmitQuiz(ctx context.Context, userID int64, questionIDs []int64, answers []string) (*models.QuizResult, error) {
	if len(questionIDs) == 0 {
		return nil, fmt.Errorf("submit quiz: no questions: %w", models.ErrInvalidArgument)
	}
	if len(answers) > len(questionIDs) {
		return nil, fmt.Errorf("submit quiz: %d answers for %d questions: %w", len(answers), len(questionIDs), models.ErrInvalidArgument)
	}

	keys, err := s.answerKeys(ctx, questionIDs)
	if err != nil {
		return nil, err
	}

	var answered, correct int
	err = s.progress.InTx(ctx, func(tx StatsTx) error {
		answered, correct = 0, 0
		now := s.now()
		for i, qid := range questionIDs {
			if i >= len(answers) || answers[i] == "" {
				continue
			}
			ok := scoring.AnswerMatches(answers[i], keys[qid])

			prior, err := tx.GetStat(ctx, userID, qid)
			if err != nil {
				return fmt.Errorf("load stat for question %d: %w", qid, err)
			}
			next := scoring.RecordQuizAnswer(prior, userID, qid, ok, now)
			if err := tx.SaveStat(ctx, next); err != nil {
				return fmt.Errorf("save stat for question %d: %w", qid, err)
			}

			answered++
			if ok {
				correct++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit quiz: %w", err)
	}

	result, err := scoring.TallyQuiz(len(questionIDs), answered, correct)
	if err != nil {
		return nil, err
	}
	log.Printf("[quiz] user=%d total=%d answered=%d correct=%d score=%.2f",
		userID, result.Total, result.Answered, result.Correct, result.Score)
	return &result, nil
}

func (s *Service) answerKeys(ctx context.Context, ids []int64) (map[int64]models.Answer, error) {
	questions, err := s.items.GetQuestionsByIDs(ctx, models.NewIDSet(ids...))
	if err != nil {
		return nil, fmt.Errorf("load answer keys: %w", err)
	}
	keys := make(map[int64]models.Answer, len(questions))
	for _, q := range questions {
		keys[q.ID] = q.Answer
	}
	for _, id := range ids {
		if _, ok := keys[id]; !ok {
			return nil, fmt.Errorf("question %d: %w", id, models.ErrNotFound)
		}
	}
	return keys, nil
}

// ── Listing and Progress ────────────────────────────────

func (s *Service) ListQuestions(ctx context.Context, userID int64, req models.QuestionListRequest) (*models.QuestionListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = 10
	}
	rows, total, err := s.progress.ListQuestionsWithStats(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if rows == nil {
		rows = []models.QuestionWithStats{}
	}
	return &models.QuestionListResponse{
		Questions: rows,
		Total:     total,
		Page:      req.Page,
		PerPage:   req.PerPage,
		LastPage:  lastPage(total, req.PerPage),
	}, nil
}

func (s *Service) GetQuestion(ctx context.Context, userID, questionID int64) (*models.QuestionWithStats, error) {
	return s.progress.GetQuestionWithStats(ctx, userID, questionID)
}

// Progress reports the share of the corpus answered correctly at least once.
func (s *Service) Progress(ctx context.Context, userID int64) (models.QuestionAggregate, error) {
	total, err := s.items.CountQuestions(ctx)
	if err != nil {
		return models.QuestionAggregate{}, err
	}
	correct, err := s.progress.CountCorrectlyAnswered(ctx, userID)
	if err != nil {
		return models.QuestionAggregate{}, err
	}
	return scoring.ComputeQuestionAggregate(total, correct), nil
}

func (s *Service) Stats(ctx context.Context, userID int64) ([]models.QuestionStat, error) {
	return s.progress.ListStats(ctx, userID)
}

func lastPage(total, perPage int) int {
	if total == 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
