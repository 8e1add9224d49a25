// Package scoring turns answer events into updated per-item progress counters
// and derives aggregate mastery percentages. Everything here is pure; callers
// own persistence.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/patente-app/backend/internal/models"
)

// MasteredScore is the flashcard score at which a card counts as mastered.
// It is also the maximum credit a single card contributes to the aggregate.
const MasteredScore = 3

// ── Quiz Path ───────────────────────────────────────────

// RecordQuizAnswer applies one quiz answer to a prior stat. A nil prior means
// the user has never answered the question. Counters are unbounded.
func RecordQuizAnswer(prior *models.QuestionStat, userID, questionID int64, correct bool, now time.Time) models.QuestionStat {
	var next models.QuestionStat
	if prior != nil {
		next = *prior
	} else {
		next = models.QuestionStat{UserID: userID, QuestionID: questionID, CreatedAt: now}
	}

	if correct {
		next.Correct++
	} else {
		next.Wrong++
	}
	next.Attempts = next.Correct + next.Wrong
	t := now
	next.LastAttemptAt = &t
	next.UpdatedAt = now
	return next
}

// AnswerMatches compares a submitted answer letter with the stored one,
// ignoring case and surrounding whitespace.
func AnswerMatches(submitted string, correct models.Answer) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(string(correct)))
}

// TallyQuiz computes the result of a batch of total items where answered of
// them were answered and correct of those were right. An empty batch has no
// defined score and is rejected.
func TallyQuiz(total, answered, correct int) (models.QuizResult, error) {
	if total <= 0 {
		return models.QuizResult{}, fmt.Errorf("tally quiz: empty batch: %w", models.ErrInvalidArgument)
	}
	return models.QuizResult{
		Total:    total,
		Answered: answered,
		Correct:  correct,
		Wrong:    answered - correct,
		Score:    Round2(float64(correct) * 100 / float64(total)),
	}, nil
}

// ComputeQuestionAggregate reports the share of the corpus the user has
// answered correctly at least once. Wrong answers never subtract.
func ComputeQuestionAggregate(totalQuestions, answeredCorrectly int) models.QuestionAggregate {
	agg := models.QuestionAggregate{
		TotalQuestions:    totalQuestions,
		AnsweredCorrectly: answeredCorrectly,
	}
	if totalQuestions > 0 {
		agg.Percentage = Round2(float64(answeredCorrectly) / float64(totalQuestions) * 100)
	}
	return agg
}

// ── Flashcard Path ──────────────────────────────────────

// RecordFlashcardAnswer applies one self-graded review to a prior progress
// record. The score moves by one in either direction and is floored at zero.
func RecordFlashcardAnswer(prior *models.TranslationProgress, userID, translationID int64, result models.FlashcardResult, now time.Time) (models.TranslationProgress, error) {
	if !result.Valid() {
		return models.TranslationProgress{}, fmt.Errorf("record flashcard answer: result %q: %w", result, models.ErrInvalidArgument)
	}

	var next models.TranslationProgress
	if prior != nil {
		next = *prior
	} else {
		next = models.TranslationProgress{UserID: userID, TranslationID: translationID, CreatedAt: now}
	}

	next.Attempts++
	if result == models.ResultCorrect {
		next.Score++
	} else {
		next.Score--
	}
	if next.Score < 0 {
		next.Score = 0
	}
	t := now
	next.LastAttemptAt = &t
	next.UpdatedAt = now
	return next, nil
}

// ComputeFlashcardAggregate buckets records by score. Each reviewed card with
// a score of at least 1 counts once, over a denominator of MasteredScore per
// card, so a fully mastered corpus reads 33.33 rather than 100.
func ComputeFlashcardAggregate(totalTranslations int, records []models.TranslationProgress) models.FlashcardAggregate {
	agg := models.FlashcardAggregate{TotalTranslations: totalTranslations}
	for _, r := range records {
		switch {
		case r.Score >= MasteredScore:
			agg.Mastered++
		case r.Score == 2:
			agg.ScoreTwo++
		case r.Score == 1:
			agg.ScoreOne++
		}
	}
	return finishFlashcardAggregate(agg)
}

// FlashcardAggregateFromCounts builds the aggregate from bucket counts that
// a store computed with SQL.
func FlashcardAggregateFromCounts(totalTranslations, mastered, scoreTwo, scoreOne int) models.FlashcardAggregate {
	return finishFlashcardAggregate(models.FlashcardAggregate{
		TotalTranslations: totalTranslations,
		Mastered:          mastered,
		ScoreTwo:          scoreTwo,
		ScoreOne:          scoreOne,
	})
}

func finishFlashcardAggregate(agg models.FlashcardAggregate) models.FlashcardAggregate {
	if agg.TotalTranslations <= 0 {
		agg.Percentage = 0
		return agg
	}
	counted := agg.Mastered + agg.ScoreTwo + agg.ScoreOne
	agg.Percentage = Round2(float64(counted) * 100 / float64(agg.TotalTranslations*MasteredScore))
	return agg
}

// ── Eligibility ─────────────────────────────────────────

// FlashcardEligible reports whether a card may be drawn under an optional
// score ceiling. Unseen cards (nil progress) are always eligible.
func FlashcardEligible(progress *models.TranslationProgress, maxScore *int) bool {
	if maxScore == nil || progress == nil {
		return true
	}
	return progress.Score <= *maxScore
}

// QuestionEligible reports whether a question passes the given history filter.
func QuestionEligible(stat *models.QuestionStat, filter models.StatsFilter) bool {
	var correct, wrong int
	if stat != nil {
		correct, wrong = stat.Correct, stat.Wrong
	}
	switch filter {
	case models.FilterCorrect:
		return correct > 0
	case models.FilterWrong:
		return wrong > 0
	case models.FilterNeverAnswered:
		return correct == 0 && wrong == 0
	default:
		return true
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
