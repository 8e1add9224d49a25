package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing item or user reference.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument reports input the core refuses to operate on.
	ErrInvalidArgument = errors.New("invalid argument")
)

// QuestionStat is one user's running answer counters for one question.
// Attempts always equals Correct + Wrong.
type QuestionStat struct {
	ID            int64      `json:"id" db:"id"`
	UserID        int64      `json:"user_id" db:"user_id"`
	QuestionID    int64      `json:"question_id" db:"question_id"`
	Correct       int        `json:"correct" db:"correct"`
	Wrong         int        `json:"wrong" db:"wrong"`
	Attempts      int        `json:"attempts" db:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at" db:"last_attempt_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// TranslationProgress is one user's flashcard score for one translation.
// Score never drops below zero.
type TranslationProgress struct {
	ID            int64      `json:"id" db:"id"`
	UserID        int64      `json:"user_id" db:"user_id"`
	TranslationID int64      `json:"translation_id" db:"translation_id"`
	Score         int        `json:"score" db:"score"`
	Attempts      int        `json:"attempts" db:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at" db:"last_attempt_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FlashcardAggregate is the derived mastery summary across the translation corpus.
type FlashcardAggregate struct {
	TotalTranslations int     `json:"total_translations"`
	Mastered          int     `json:"mastered"`
	ScoreTwo          int     `json:"score_two"`
	ScoreOne          int     `json:"score_one"`
	Percentage        float64 `json:"percentage"`
}
