package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/patente-app/backend/internal/models"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Store() *Store { return s.store }

// ── Question Management ─────────────────────────────────

func (s *Service) CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error) {
	q, err := questionFromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.store.CreateQuestion(ctx, q)
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, req models.QuestionRequest) (*models.Question, error) {
	q, err := questionFromRequest(req)
	if err != nil {
		return nil, err
	}
	q.ID = id
	return s.store.UpdateQuestion(ctx, q)
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return s.store.DeleteQuestion(ctx, id)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	return s.store.GetQuestion(ctx, id)
}

func questionFromRequest(req models.QuestionRequest) (models.Question, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return models.Question{}, fmt.Errorf("text is required: %w", models.ErrInvalidArgument)
	}
	answer, ok := models.ParseAnswer(req.Answer)
	if !ok {
		return models.Question{}, fmt.Errorf("answer must be V or F: %w", models.ErrInvalidArgument)
	}
	if req.ParentNumber <= 0 || req.QuestionNumber <= 0 {
		return models.Question{}, fmt.Errorf("parent_number and question_number must be positive: %w", models.ErrInvalidArgument)
	}
	return models.Question{
		Text:           text,
		TextFa:         trimOptional(req.TextFa),
		Image:          trimOptional(req.Image),
		Answer:         answer,
		ParentNumber:   req.ParentNumber,
		QuestionNumber: req.QuestionNumber,
	}, nil
}

// ── Translation Management ──────────────────────────────

func (s *Service) ListTranslations(ctx context.Context) ([]models.Translation, error) {
	return s.store.ListTranslations(ctx)
}

func (s *Service) GetTranslation(ctx context.Context, id int64) (*models.Translation, error) {
	return s.store.GetTranslation(ctx, id)
}

func (s *Service) CreateTranslation(ctx context.Context, req models.TranslationRequest) (*models.Translation, error) {
	t, err := translationFromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.store.CreateTranslation(ctx, t)
}

func (s *Service) UpdateTranslation(ctx context.Context, id int64, req models.TranslationRequest) (*models.Translation, error) {
	t, err := translationFromRequest(req)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return s.store.UpdateTranslation(ctx, t)
}

func (s *Service) DeleteTranslation(ctx context.Context, id int64) error {
	return s.store.DeleteTranslation(ctx, id)
}

func translationFromRequest(req models.TranslationRequest) (models.Translation, error) {
	t := models.Translation{
		TextIT: strings.TrimSpace(req.TextIT),
		TextEN: strings.TrimSpace(req.TextEN),
		TextFA: strings.TrimSpace(req.TextFA),
	}
	if t.TextIT == "" || t.TextEN == "" || t.TextFA == "" {
		return models.Translation{}, fmt.Errorf("text_it, text_en and text_fa are required: %w", models.ErrInvalidArgument)
	}
	return t, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
