package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/validation"
	"github.com/meritan/go-curator/internal/newsletter"
)

// NewsletterHandler serves the public subscribe/unsubscribe endpoints. These
// sit outside the authenticated API surface and are rate limited by IP.
type NewsletterHandler struct {
	service *newsletter.Service
}

func NewNewsletterHandler(service *newsletter.Service) *NewsletterHandler {
	return &NewsletterHandler{service: service}
}

type NewsletterRequest struct {
	Email string `json:"email"`
}

func (h *NewsletterHandler) parseEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req NewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return "", false
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.IsValidEmail(email) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"email": "Invalid email format"},
		})
		return "", false
	}
	return email, true
}

// Subscribe handles POST /api/v1/newsletter/subscribe
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.parseEmail(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Subscribe(r.Context(), email); err != nil {
		switch {
		case errors.Is(err, newsletter.ErrDisposableEmail):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Disposable email addresses are not accepted"})
		case errors.Is(err, newsletter.ErrAlreadySubscribed):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email already subscribed"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Subscription failed"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.SuccessResponse{Message: "Subscribed"})
}

// Unsubscribe handles POST /api/v1/newsletter/unsubscribe
func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.parseEmail(w, r)
	if !ok {
		return
	}

	if err := h.service.Unsubscribe(r.Context(), email); err != nil {
		if errors.Is(err, newsletter.ErrNotSubscribed) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Email is not subscribed"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Unsubscribe failed"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Unsubscribed"})
}
