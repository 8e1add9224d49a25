package models

import "time"

// FlashcardResult is the self-graded outcome of one flashcard review.
type FlashcardResult string

const (
	ResultCorrect FlashcardResult = "correct"
	ResultWrong   FlashcardResult = "wrong"
)

func (r FlashcardResult) Valid() bool {
	return r == ResultCorrect || r == ResultWrong
}

type Translation struct {
	ID        int64     `json:"id" db:"id"`
	TextIT    string    `json:"text_it" db:"text_it"`
	TextEN    string    `json:"text_en" db:"text_en"`
	TextFA    string    `json:"text_fa" db:"text_fa"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Phrase is the Italian side of a translation, used for cross-referencing.
type Phrase struct {
	ID     int64  `db:"id"`
	TextIT string `db:"text_it"`
}

// TranslationWithProgress is a translation joined with one user's progress.
// The progress fields are nil when the user has never reviewed the card.
type TranslationWithProgress struct {
	Translation
	Score         *int       `json:"score" db:"score"`
	Attempts      *int       `json:"attempts" db:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at" db:"last_attempt_at"`
}

type TranslationRequest struct {
	TextIT string `json:"text_it"`
	TextEN string `json:"text_en"`
	TextFA string `json:"text_fa"`
}

type FlashcardAnswerRequest struct {
	TranslationID int64           `json:"translationId"`
	Result        FlashcardResult `json:"result"`
}

type FlashcardCard struct {
	Translation Translation        `json:"translation"`
	Progress    FlashcardAggregate `json:"progress"`
}

type FlashcardAnswerResponse struct {
	Progress        TranslationProgress `json:"progress"`
	OverallProgress FlashcardAggregate  `json:"overall_progress"`
}

type Pagination struct {
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

type FlashcardListResponse struct {
	Translations []TranslationWithProgress `json:"translations"`
	Progress     FlashcardAggregate        `json:"progress"`
	Pagination   Pagination                `json:"pagination"`
}
