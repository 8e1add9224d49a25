package premium

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/patente-app/backend/internal/middleware"
	"github.com/patente-app/backend/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the processor callback, which carries no token.
func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/payment/webhook", h.Webhook).Methods("POST")
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/payment/create-checkout-session", h.CreateCheckout).Methods("POST")
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	resp, err := h.service.CreateCheckout(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	}
	if err != nil {
		log.Printf("[premium] create checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create checkout session"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	err = h.service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, ErrBadSignature):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid signature"})
	case errors.Is(err, models.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid payload"})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Unknown session"})
	default:
		log.Printf("[premium] webhook: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
