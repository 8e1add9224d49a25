// Package profile serves the signed-in user's account summary and
// preferences, combining quiz and flashcard progress.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/patente-app/backend/internal/middleware"
	"github.com/patente-app/backend/internal/models"
)

type Users interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	SetShowFarsi(ctx context.Context, id int64, show bool) error
}

type QuizProgress interface {
	Progress(ctx context.Context, userID int64) (models.QuestionAggregate, error)
	Stats(ctx context.Context, userID int64) ([]models.QuestionStat, error)
}

type FlashcardProgress interface {
	Progress(ctx context.Context, userID int64) (models.FlashcardAggregate, error)
	ListProgress(ctx context.Context, userID int64) ([]models.TranslationProgress, error)
	Responded(ctx context.Context, userID int64) ([]models.TranslationWithProgress, error)
}

type Handler struct {
	users      Users
	quiz       QuizProgress
	flashcards FlashcardProgress
}

func NewHandler(users Users, quiz QuizProgress, flashcards FlashcardProgress) *Handler {
	return &Handler{users: users, quiz: quiz, flashcards: flashcards}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/me/progress", h.GetProgress).Methods("GET")
	r.HandleFunc("/me/flashcards-responded", h.GetResponded).Methods("GET")
	r.HandleFunc("/me/preferences", h.UpdatePreferences).Methods("POST")
}

func (h *Handler) overview(ctx context.Context, userID int64) (models.ProfileOverview, error) {
	q, err := h.quiz.Progress(ctx, userID)
	if err != nil {
		return models.ProfileOverview{}, err
	}
	f, err := h.flashcards.Progress(ctx, userID)
	if err != nil {
		return models.ProfileOverview{}, err
	}
	return models.ProfileOverview{
		QuestionsCorrectPercent:   q.Percentage,
		QuestionsAnsweredUnique:   q.AnsweredCorrectly,
		TotalQuestions:            q.TotalQuestions,
		FlashcardsProgressPercent: f.Percentage,
		FlashcardsStats:           f,
	}, nil
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	ctx := r.Context()

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		writeError(w, "get user", err)
		return
	}
	questions, err := h.quiz.Stats(ctx, userID)
	if err != nil {
		writeError(w, "question stats", err)
		return
	}
	translations, err := h.flashcards.ListProgress(ctx, userID)
	if err != nil {
		writeError(w, "translation progress", err)
		return
	}
	overview, err := h.overview(ctx, userID)
	if err != nil {
		writeError(w, "overview", err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProfileResponse{
		User:     *user,
		Stats:    models.ProfileStats{Questions: questions, Translations: translations},
		Overview: overview,
	})
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	agg, err := h.flashcards.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, "flashcard progress", err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *Handler) GetResponded(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	rows, err := h.flashcards.Responded(r.Context(), userID)
	if err != nil {
		writeError(w, "responded flashcards", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	var req models.PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShowFarsi == nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "show_farsi is required"})
		return
	}
	if err := h.users.SetShowFarsi(r.Context(), userID, *req.ShowFarsi); err != nil {
		writeError(w, "update preferences", err)
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, models.UserResponse{User: *user})
}

func writeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	}
	log.Printf("[profile] %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
