package flashcards

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/patente-app/backend/internal/middleware"
	"github.com/patente-app/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/flashcards", h.List).Methods("GET")
	r.HandleFunc("/flashcards/random", h.Random).Methods("GET")
	r.HandleFunc("/flashcards/answer", h.Answer).Methods("POST")
}

func (h *Handler) Random(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var maxScore *int
	if s := r.URL.Query().Get("exclude_score_gt"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "exclude_score_gt must be a non-negative integer"})
			return
		}
		maxScore = &v
	}

	card, err := h.service.RandomCard(r.Context(), userID, maxScore)
	if err != nil {
		writeServiceError(w, "random flashcard", err)
		return
	}
	if card == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No cards available"})
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.FlashcardAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TranslationID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "translationId is required"})
		return
	}
	if !req.Result.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "result must be 'correct' or 'wrong'"})
		return
	}

	resp, err := h.service.Answer(r.Context(), userID, req.TranslationID, req.Result)
	if err != nil {
		writeServiceError(w, "answer flashcard", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	query := r.URL.Query()
	perPage := intQueryParam(query, "per_page", 10)
	if perPage > 100 {
		perPage = 100
	}

	resp, err := h.service.List(r.Context(), userID, intQueryParam(query, "page", 1), perPage)
	if err != nil {
		writeServiceError(w, "list flashcards", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Translation not found"})
	case errors.Is(err, models.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[flashcards] %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
