package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Answer is the correct-answer encoding of a driving-test question:
// "V" (vero, true) or "F" (falso, false).
type Answer string

const (
	AnswerTrue  Answer = "V"
	AnswerFalse Answer = "F"
)

// ParseAnswer normalizes a submitted or stored answer letter.
func ParseAnswer(s string) (Answer, bool) {
	switch Answer(strings.ToUpper(strings.TrimSpace(s))) {
	case AnswerTrue:
		return AnswerTrue, true
	case AnswerFalse:
		return AnswerFalse, true
	}
	return "", false
}

// StatsFilter narrows the question corpus by a user's answer history.
type StatsFilter string

const (
	FilterAll           StatsFilter = ""
	FilterCorrect       StatsFilter = "correct"
	FilterWrong         StatsFilter = "wrong"
	FilterNeverAnswered StatsFilter = "never_answered"
)

// IDSet is a set of record ids persisted as a JSON integer array.
type IDSet []int64

// NewIDSet returns the ids deduplicated and in ascending order.
func NewIDSet(ids ...int64) IDSet {
	seen := make(map[int64]bool, len(ids))
	out := make(IDSet, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int64(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *IDSet) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan id set: unsupported type %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*s = IDSet{}
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("scan id set: %w", err)
	}
	*s = IDSet(ids)
	return nil
}

// ── Core Structs ───────────────────────────────────────

type Question struct {
	ID             int64     `json:"id" db:"id"`
	Text           string    `json:"text" db:"text"`
	TextFa         *string   `json:"text_fa,omitempty" db:"text_fa"`
	Image          *string   `json:"image,omitempty" db:"image"`
	Answer         Answer    `json:"answer" db:"answer"`
	ParentNumber   int       `json:"parent_number" db:"parent_number"`
	QuestionNumber int       `json:"question_number" db:"question_number"`
	TranslationIDs IDSet     `json:"translation_ids" db:"translation_ids"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// QuestionWithStats is a question joined with one user's answer counters.
type QuestionWithStats struct {
	Question
	CorrectCount  int        `json:"correct_count" db:"correct_count"`
	WrongCount    int        `json:"wrong_count" db:"wrong_count"`
	LastAttempted *time.Time `json:"last_attempted" db:"last_attempted"`
}

// QuizQuestion is what a quiz taker sees: the question without its answer,
// composed with the translation records it cross-references.
type QuizQuestion struct {
	ID             int64         `json:"id"`
	Text           string        `json:"text"`
	TextFa         *string       `json:"text_fa,omitempty"`
	Image          *string       `json:"image,omitempty"`
	ParentNumber   int           `json:"parent_number"`
	QuestionNumber int           `json:"question_number"`
	Translations   []Translation `json:"translations"`
}

// ── Request Types ────────────────────────────────────────

type QuestionRequest struct {
	Text           string  `json:"text"`
	TextFa         *string `json:"text_fa,omitempty"`
	Image          *string `json:"image,omitempty"`
	Answer         string  `json:"answer"`
	ParentNumber   int     `json:"parent_number"`
	QuestionNumber int     `json:"question_number"`
}

type QuestionListRequest struct {
	Search  string
	Filter  StatsFilter
	Page    int
	PerPage int
}

type QuizSubmitRequest struct {
	QuestionIDs []int64   `json:"question_ids"`
	Answers     []*string `json:"answers"`
}

// ── Response Types ────────────────────────────────────────

type QuestionListResponse struct {
	Questions []QuestionWithStats `json:"data"`
	Total     int                 `json:"total"`
	Page      int                 `json:"current_page"`
	PerPage   int                 `json:"per_page"`
	LastPage  int                 `json:"last_page"`
}

// QuizResult is the tally of one submitted quiz batch.
type QuizResult struct {
	Total    int     `json:"total"`
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Wrong    int     `json:"wrong"`
	Score    float64 `json:"score"`
}

type QuestionAggregate struct {
	TotalQuestions    int     `json:"total_questions"`
	AnsweredCorrectly int     `json:"questions_answered_unique"`
	Percentage        float64 `json:"questions_correct_percent"`
}

// CrossRefReport summarizes one run of the phrase cross-reference job.
type CrossRefReport struct {
	QuestionsProcessed int `json:"questions_processed"`
	QuestionsUpdated   int `json:"questions_updated"`
	PhrasesConsidered  int `json:"phrases_considered"`
}

// TranslateReport summarizes one run of the Persian translation job.
type TranslateReport struct {
	Processed      int `json:"processed_count"`
	Errors         int `json:"error_count"`
	TotalAttempted int `json:"total_attempted"`
}
