package quiz

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
	r.HandleFunc("/quiz", h.GenerateQuiz).Methods("GET")
	r.HandleFunc("/quiz/submit", h.SubmitQuiz).Methods("POST")
	r.HandleFunc("/questions", h.ListQuestions).Methods("GET")
	r.HandleFunc("/questions/{id:[0-9]+}", h.GetQuestion).Methods("GET")
}

// parseQuizType maps the quiz "type" parameter. Anything other than "wrong"
// or "never_answered" draws from the whole corpus.
func parseQuizType(s string) models.StatsFilter {
	switch s {
	case "wrong":
		return models.FilterWrong
	case "never_answered":
		return models.FilterNeverAnswered
	}
	return models.FilterAll
}

// parseStatsFilter maps the listing "filter_stats" parameter.
func parseStatsFilter(s string) (models.StatsFilter, bool) {
	switch s {
	case "", "all":
		return models.FilterAll, true
	case "correct":
		return models.FilterCorrect, true
	case "wrong":
		return models.FilterWrong, true
	case "none", "never_answered":
		return models.FilterNeverAnswered, true
	}
	return "", false
}

func (h *Handler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	query := r.URL.Query()

	filter := parseQuizType(query.Get("type"))
	count := intQueryParam(query, "count", DefaultQuizSize)

	questions, err := h.service.GenerateQuiz(r.Context(), userID, count, filter)
	if err != nil {
		writeServiceError(w, "generate quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.QuizSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req.QuestionIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_ids is required"})
		return
	}
	if len(req.Answers) > len(req.QuestionIDs) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answers must not outnumber question_ids"})
		return
	}

	answers := make([]string, len(req.Answers))
	for i, a := range req.Answers {
		if a == nil || *a == "" {
			continue
		}
		parsed, ok := models.ParseAnswer(*a)
		if !ok {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answers must be V or F"})
			return
		}
		answers[i] = string(parsed)
	}

	result, err := h.service.SubmitQuiz(r.Context(), userID, req.QuestionIDs, answers)
	if err != nil {
		writeServiceError(w, "submit quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	query := r.URL.Query()

	filter, ok := parseStatsFilter(query.Get("filter_stats"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "filter_stats must be 'correct', 'wrong' or 'none'"})
		return
	}
	perPage := intQueryParam(query, "per_page", 10)
	if perPage > 100 {
		perPage = 100
	}

	resp, err := h.service.ListQuestions(r.Context(), userID, models.QuestionListRequest{
		Search:  query.Get("search"),
		Filter:  filter,
		Page:    intQueryParam(query, "page", 1),
		PerPage: perPage,
	})
	if err != nil {
		writeServiceError(w, "list questions", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	q, err := h.service.GetQuestion(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, "get question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
	case errors.Is(err, models.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[quiz] %s: %v", op, err)
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
