package flashcards

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/patente-app/backend/internal/models"
	"github.com/patente-app/backend/internal/scoring"
	"github.com/patente-app/backend/internal/selection"
)

// Items is the read-only translation corpus.
type Items interface {
	CountTranslations(ctx context.Context) (int, error)
	GetTranslation(ctx context.Context, id int64) (*models.Translation, error)
}

// ScoreCounts are a user's progress records bucketed by score.
type ScoreCounts struct {
	Mastered int `db:"mastered"`
	ScoreTwo int `db:"score_two"`
	ScoreOne int `db:"score_one"`
}

// Progress is the per-user flashcard history.
type Progress interface {
	// ListEligibleTranslationIDs returns unseen translations plus those whose
	// score does not exceed maxScore. A nil maxScore returns all of them.
	ListEligibleTranslationIDs(ctx context.Context, userID int64, maxScore *int) ([]int64, error)
	CountByScore(ctx context.Context, userID int64) (ScoreCounts, error)
	ListWithProgress(ctx context.Context, userID int64, limit, offset int) ([]models.TranslationWithProgress, error)
	ListResponded(ctx context.Context, userID int64) ([]models.TranslationWithProgress, error)
	ListProgress(ctx context.Context, userID int64) ([]models.TranslationProgress, error)
	InTx(ctx context.Context, fn func(ProgressTx) error) error
}

// ProgressTx reads and writes progress inside a transaction.
type ProgressTx interface {
	// GetProgress returns the locked record, or nil if the card is unseen.
	GetProgress(ctx context.Context, userID, translationID int64) (*models.TranslationProgress, error)
	// SaveProgress persists p and returns it with its id set.
	SaveProgress(ctx context.Context, p models.TranslationProgress) (models.TranslationProgress, error)
}

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

// RandomCard draws one card uniformly from those eligible under maxScore.
// It returns nil without error when no card qualifies.
func (s *Service) RandomCard(ctx context.Context, userID int64, maxScore *int) (*models.FlashcardCard, error) {
	eligible, err := s.progress.ListEligibleTranslationIDs(ctx, userID, maxScore)
	if err != nil {
		return nil, fmt.Errorf("list eligible translations: %w", err)
	}
	id, ok := s.picker.One(eligible)
	if !ok {
		return nil, nil
	}

	t, err := s.items.GetTranslation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load flashcard %d: %w", id, err)
	}
	agg, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.FlashcardCard{Translation: *t, Progress: agg}, nil
}

// Answer applies one self-graded review and returns the card's new record
// together with the recomputed aggregate.
func (s *Service) Answer(ctx context.Context, userID, translationID int64, result models.FlashcardResult) (*models.FlashcardAnswerResponse, error) {
	if !result.Valid() {
		return nil, fmt.Errorf("answer flashcard: result %q: %w", result, models.ErrInvalidArgument)
	}
	if _, err := s.items.GetTranslation(ctx, translationID); err != nil {
		return nil, fmt.Errorf("answer flashcard: %w", err)
	}

	var saved models.TranslationProgress
	err := s.progress.InTx(ctx, func(tx ProgressTx) error {
		prior, err := tx.GetProgress(ctx, userID, translationID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		next, err := scoring.RecordFlashcardAnswer(prior, userID, translationID, result, s.now())
		if err != nil {
			return err
		}
		saved, err = tx.SaveProgress(ctx, next)
		if err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("answer flashcard: %w", err)
	}

	agg, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[flashcards] user=%d translation=%d result=%s score=%d overall=%.2f",
		userID, translationID, result, saved.Score, agg.Percentage)
	return &models.FlashcardAnswerResponse{Progress: saved, OverallProgress: agg}, nil
}

// List pages through the whole corpus with the user's progress attached.
func (s *Service) List(ctx context.Context, userID int64, page, perPage int) (*models.FlashcardListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	rows, err := s.progress.ListWithProgress(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	if rows == nil {
		rows = []models.TranslationWithProgress{}
	}
	agg, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.FlashcardListResponse{
		Translations: rows,
		Progress:     agg,
		Pagination: models.Pagination{
			Page:     page,
			PerPage:  perPage,
			Total:    agg.TotalTranslations,
			LastPage: (agg.TotalTranslations + perPage - 1) / perPage,
		},
	}, nil
}

// Responded lists the cards the user has reviewed, most recent first.
func (s *Service) Responded(ctx context.Context, userID int64) ([]models.TranslationWithProgress, error) {
	rows, err := s.progress.ListResponded(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list responded flashcards: %w", err)
	}
	if rows == nil {
		rows = []models.TranslationWithProgress{}
	}
	return rows, nil
}

// Progress computes the user's mastery aggregate over the corpus.
func (s *Service) Progress(ctx context.Context, userID int64) (models.FlashcardAggregate, error) {
	total, err := s.items.CountTranslations(ctx)
	if err != nil {
		return models.FlashcardAggregate{}, fmt.Errorf("count translations: %w", err)
	}
	counts, err := s.progress.CountByScore(ctx, userID)
	if err != nil {
		return models.FlashcardAggregate{}, fmt.Errorf("count progress by score: %w", err)
	}
	return scoring.FlashcardAggregateFromCounts(total, counts.Mastered, counts.ScoreTwo, counts.ScoreOne), nil
}

func (s *Service) ListProgress(ctx context.Context, userID int64) ([]models.TranslationProgress, error) {
	return s.progress.ListProgress(ctx, userID)
}
