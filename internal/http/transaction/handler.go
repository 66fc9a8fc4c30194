package transaction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Patch("/{id}", h.update)
}

func (h *Handler) AccountRoutes(r chi.Router) {
	r.Get("/", h.listAccounts)
	r.Post("/", h.createAccount)
}

// date accepts "YYYY-MM-DD".
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}

	d.Time = t

	return nil
}

type createTransactionRequest struct {
	AccountID           *uuid.UUID `json:"account_id,omitempty"`
	Amount              int64      `json:"amount"`
	Date                date       `json:"date"`
	Notes               string     `json:"notes"`
	ImportedDescription string     `json:"imported_description,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Date.IsZero() {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		AccountID:           req.AccountID,
		Amount:              req.Amount,
		Date:                req.Date.Time,
		Notes:               req.Notes,
		ImportedDescription: req.ImportedDescription,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{}

	if s := r.URL.Query().Get("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid account_id", http.StatusBadRequest)
			return
		}

		filter.AccountID = &id
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		internalError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		internalError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateTransactionRequest struct {
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Amount    *int64     `json:"amount,omitempty"`
	Date      *date      `json:"date,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// update edits the user-owned fields. The imported description is kept as
// the bank sent it.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		internalError(w, err)

		return
	}

	if req.AccountID != nil {
		tx.AccountID = req.AccountID
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}

	if req.Date != nil {
		tx.Date = req.Date.Time
	}

	if req.Notes != nil {
		tx.Notes = *req.Notes
	}

	if err := h.svc.Update(r.Context(), tx); err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountList(accounts))
}

type createAccountRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a, err := h.svc.CreateAccount(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, transaction.ErrEmptyAccountName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		internalError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, toAccountList([]*transaction.Account{a})[0])
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("transaction request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
