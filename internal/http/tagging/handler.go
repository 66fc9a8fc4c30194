package tagging

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
)

type Handler struct {
	svc *tagging.Service
}

func NewHandler(svc *tagging.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	ImportedDescription string `json:"imported_description"`
	Tag                 string `json:"tag"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	desc := r.URL.Query().Get("imported_description")
	if desc == "" {
		http.Error(w, "imported_description query parameter is required", http.StatusBadRequest)
		return
	}

	tag, err := h.svc.Suggest(r.Context(), desc)
	if err != nil {
		slog.Error("failed to suggest tag", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(suggestResponse{
		ImportedDescription: desc,
		Tag:                 tag,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type learnRequest struct {
	RawPattern string `json:"raw_pattern"`
	Tag        string `json:"tag"`
}

type ruleResponse struct {
	ID         uuid.UUID `json:"id"`
	RawPattern string    `json:"raw_pattern"`
	Tag        string    `json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rule, err := h.svc.Learn(r.Context(), req.RawPattern, req.Tag)
	if err != nil {
		if goal.IsValidation(err) || errors.Is(err, tagging.ErrEmptyPattern) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slog.Error("failed to store tag rule", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(ruleResponse{
		ID:         rule.ID,
		RawPattern: rule.RawPattern,
		Tag:        rule.Tag,
		CreatedAt:  rule.CreatedAt,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
