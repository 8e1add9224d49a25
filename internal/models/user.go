package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	Username     string     `json:"username" db:"username"`
	Password     string     `json:"-" db:"password"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	ShowFarsi    bool       `json:"show_farsi" db:"show_farsi"`
	Premium      bool       `json:"premium" db:"premium"`
	PremiumUntil *time.Time `json:"premium_until" db:"premium_until"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (u User) Role() Role {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// HasPremium reports whether the premium period covers t.
func (u User) HasPremium(t time.Time) bool {
	return u.Premium && u.PremiumUntil != nil && u.PremiumUntil.After(t)
}

// DisplayName returns "FirstName L." format (first name + last initial).
func (u User) DisplayName() string {
	parts := strings.Fields(u.Name)
	if len(parts) <= 1 {
		return u.Name
	}
	lastName := parts[len(parts)-1]
	return parts[0] + " " + string([]rune(lastName)[0]) + "."
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UserResponse struct {
	User User `json:"user"`
}

type PreferencesRequest struct {
	ShowFarsi *bool `json:"show_farsi"`
}

type ProfileStats struct {
	Questions    []QuestionStat        `json:"questions"`
	Translations []TranslationProgress `json:"translations"`
}

type ProfileOverview struct {
	QuestionsCorrectPercent   float64            `json:"questions_correct_percent"`
	QuestionsAnsweredUnique   int                `json:"questions_answered_unique"`
	TotalQuestions            int                `json:"total_questions"`
	FlashcardsProgressPercent float64            `json:"flashcards_progress_percent"`
	FlashcardsStats           FlashcardAggregate `json:"flashcards_stats"`
}

type ProfileResponse struct {
	User     User            `json:"user"`
	Stats    ProfileStats    `json:"stats"`
	Overview ProfileOverview `json:"overview"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
