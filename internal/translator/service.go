// Package translator fills in the Persian text of questions that lack one
// by asking a language model.
package translator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/patente-app/backend/internal/models"
)

// BatchSize bounds how many questions one run translates.
const BatchSize = 50

const systemPrompt = `You translate Italian driving-licence theory questions into Persian (Farsi).
Keep road-sign names and numbers exact. Reply with the Persian translation only,
without quotes, notes or the original text.`

const sourceMarker = "Italian:\n"

// Questions is the subset of the corpus store the job needs.
type Questions interface {
	ListQuestionsMissingFarsi(ctx context.Context, limit int) ([]models.Question, error)
	SetQuestionFarsi(ctx context.Context, questionID int64, text string) error
}

type Service struct {
	store Questions
	llm   LLMClient
	model string
}

func NewService(store Questions, llm LLMClient, model string) *Service {
	return &Service{store: store, llm: llm, model: model}
}

func buildPrompt(text string) string {
	return "Translate this question.\n\n" + sourceMarker + text
}

// sourceText recovers the Italian text from a prompt built by buildPrompt.
func sourceText(prompt string) string {
	if i := strings.Index(prompt, sourceMarker); i >= 0 {
		return prompt[i+len(sourceMarker):]
	}
	return prompt
}

// cleanCompletion strips wrapping quotes and whitespace some models add.
func cleanCompletion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'«»“”")
	return strings.TrimSpace(s)
}

// TranslateMissing translates up to BatchSize questions. A failed question
// is counted and skipped; only a failure to list the batch aborts the run.
func (s *Service) TranslateMissing(ctx context.Context) (*models.TranslateReport, error) {
	pending, err := s.store.ListQuestionsMissingFarsi(ctx, BatchSize)
	if err != nil {
		return nil, fmt.Errorf("translate missing: %w", err)
	}

	report := &models.TranslateReport{TotalAttempted: len(pending)}
	for _, q := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		resp, err := s.llm.Complete(ctx, systemPrompt, buildPrompt(q.Text))
		if err != nil {
			log.Printf("[translator] question %d: %v", q.ID, err)
			report.Errors++
			continue
		}
		text := cleanCompletion(resp.Content)
		if text == "" {
			log.Printf("[translator] question %d: empty translation", q.ID)
			report.Errors++
			continue
		}
		if err := s.store.SetQuestionFarsi(ctx, q.ID, text); err != nil {
			log.Printf("[translator] question %d: %v", q.ID, err)
			report.Errors++
			continue
		}
		report.Processed++
	}

	log.Printf("[translator] model=%s attempted=%d processed=%d errors=%d",
		s.model, report.TotalAttempted, report.Processed, report.Errors)
	return report, nil
}
