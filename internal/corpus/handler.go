package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/models"
)

// Translator fills in missing Persian question texts.
type Translator interface {
	TranslateMissing(ctx context.Context) (*models.TranslateReport, error)
}

// Handler serves the admin corpus-management endpoints.
type Handler struct {
	service    *Service
	translator Translator
}

func NewHandler(service *Service, translator Translator) *Handler {
	return &Handler{service: service, translator: translator}
}

// RegisterRoutes mounts the handlers on an admin-only subrouter.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/translations", h.ListTranslations).Methods("GET")
	r.HandleFunc("/translations", h.CreateTranslation).Methods("POST")
	r.HandleFunc("/translations/{id:[0-9]+}", h.GetTranslation).Methods("GET")
	r.HandleFunc("/translations/{id:[0-9]+}", h.UpdateTranslation).Methods("PUT")
	r.HandleFunc("/translations/{id:[0-9]+}", h.DeleteTranslation).Methods("DELETE")

	r.HandleFunc("/questions", h.CreateQuestion).Methods("POST")
	r.HandleFunc("/questions/translate", h.TranslateQuestions).Methods("POST")
	r.HandleFunc("/questions/{id:[0-9]+}", h.GetQuestion).Methods("GET")
	r.HandleFunc("/questions/{id:[0-9]+}", h.UpdateQuestion).Methods("PUT")
	r.HandleFunc("/questions/{id:[0-9]+}", h.DeleteQuestion).Methods("DELETE")

	r.HandleFunc("/crossref", h.RunCrossReference).Methods("POST")
}

// ── Translations ────────────────────────────────────────

func (h *Handler) ListTranslations(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListTranslations(r.Context())
	if err != nil {
		writeServiceError(w, "list translations", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.GetTranslation(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get translation", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTranslation(w http.ResponseWriter, r *http.Request) {
	var req models.TranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	t, err := h.service.CreateTranslation(r.Context(), req)
	if err != nil {
		writeServiceError(w, "create translation", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.TranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	t, err := h.service.UpdateTranslation(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, "update translation", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTranslation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTranslation(r.Context(), id); err != nil {
		writeServiceError(w, "delete translation", err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Translation deleted"})
}

// ── Questions ───────────────────────────────────────────

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.service.GetQuestion(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	q, err := h.service.CreateQuestion(r.Context(), req)
	if err != nil {
		writeServiceError(w, "create question", err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	q, err := h.service.UpdateQuestion(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, "update question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteQuestion(r.Context(), id); err != nil {
		writeServiceError(w, "delete question", err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Question deleted"})
}

// ── Batch jobs ──────────────────────────────────────────

func (h *Handler) RunCrossReference(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunCrossReference(r.Context())
	if err != nil {
		writeServiceError(w, "cross reference", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) TranslateQuestions(w http.ResponseWriter, r *http.Request) {
	if h.translator == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Translation is not configured"})
		return
	}
	report, err := h.translator.TranslateMissing(r.Context())
	if err != nil {
		writeServiceError(w, "translate questions", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid ID"})
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	case errors.Is(err, models.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case database.IsUniqueViolation(err, ""):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "A record with the same key already exists"})
	default:
		log.Printf("[handler] %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
