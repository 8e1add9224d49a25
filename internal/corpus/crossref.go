package corpus

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/patente-app/backend/internal/models"
)

// MatchPhrases returns the ids of phrases whose Italian text occurs in text,
// ignoring case. Phrases are matched as stored, surrounding spaces included;
// empty phrases never match. The result is unique and ascending.
func MatchPhrases(text string, phrases []models.Phrase) models.IDSet {
	haystack := strings.ToLower(text)
	var ids []int64
	for _, p := range phrases {
		needle := strings.ToLower(p.TextIT)
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, needle) {
			ids = append(ids, p.ID)
		}
	}
	return models.NewIDSet(ids...)
}

// RunCrossReference recomputes every question's set of related translation
// ids. Each question is written independently and only when its set changed,
// so the job is idempotent and safe to run alongside live traffic.
func (s *Service) RunCrossReference(ctx context.Context) (*models.CrossRefReport, error) {
	phrases, err := s.store.ListPhrases(ctx)
	if err != nil {
		return nil, fmt.Errorf("load phrases: %w", err)
	}
	questions, err := s.store.ListQuestionTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	report := &models.CrossRefReport{PhrasesConsidered: len(phrases)}
	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.QuestionsProcessed++

		ids := MatchPhrases(q.Text, phrases)
		if slices.Equal([]int64(ids), []int64(models.NewIDSet(q.TranslationIDs...))) {
			continue
		}
		if err := s.store.SetTranslationIDs(ctx, q.ID, ids); err != nil {
			return report, fmt.Errorf("question %d: %w", q.ID, err)
		}
		report.QuestionsUpdated++
	}

	log.Printf("[crossref] processed=%d updated=%d phrases=%d",
		report.QuestionsProcessed, report.QuestionsUpdated, report.PhrasesConsidered)
	return report, nil
}
