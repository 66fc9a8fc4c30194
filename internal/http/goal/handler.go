package goal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

type Handler struct {
	svc     *goal.Service
	history *undo.Manager
	recalc  *goal.Recalculator
}

func NewHandler(svc *goal.Service, history *undo.Manager, recalc *goal.Recalculator) *Handler {
	return &Handler{svc: svc, history: history, recalc: recalc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/recalculate", h.recalculate)
	r.Get("/transactions", h.transactions)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/transactions", h.goalTransactions)
}

// HistoryRoutes mounts undo and redo of goal mutations.
func (h *Handler) HistoryRoutes(r chi.Router) {
	r.Post("/undo", h.undo)
	r.Post("/redo", h.redo)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(goals))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	g, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(g))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params, err := req.params()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var created *goal.Goal

	err = h.history.Run(r.Context(), func(ctx context.Context) (*undo.Entry, error) {
		g, err := h.svc.Create(ctx, params)
		if err != nil {
			return nil, err
		}

		created = g
		id := g.ID

		return &undo.Entry{
			Name: "create goal",
			Undo: func(ctx context.Context) error {
				_, err := h.svc.Delete(ctx, id)
				return err
			},
			Redo: func(ctx context.Context) error {
				_, err := h.svc.Restore(ctx, id)
				return err
			},
		}, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := req.params()

	var updated *goal.Goal

	err = h.history.Run(r.Context(), func(ctx context.Context) (*undo.Entry, error) {
		before, err := h.svc.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		after, err := h.svc.Update(ctx, id, params)
		if err != nil {
			return nil, err
		}

		updated = after

		if params.Empty() {
			return nil, nil
		}

		return &undo.Entry{
			Name: "update goal",
			Undo: func(ctx context.Context) error {
				_, err := h.svc.Revert(ctx, before)
				return err
			},
			Redo: func(ctx context.Context) error {
				_, err := h.svc.Revert(ctx, after)
				return err
			},
		}, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var deleted bool

	err = h.history.Run(r.Context(), func(ctx context.Context) (*undo.Entry, error) {
		ok, err := h.svc.Delete(ctx, id)
		if err != nil || !ok {
			return nil, err
		}

		deleted = true

		return &undo.Entry{
			Name: "delete goal",
			Undo: func(ctx context.Context) error {
				_, err := h.svc.Restore(ctx, id)
				return err
			},
			Redo: func(ctx context.Context) error {
				_, err := h.svc.Delete(ctx, id)
				return err
			},
		}, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// recalculate shares a run with concurrent callers. Per-goal failures are
// logged by the service and do not fail the request.
func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.recalc.Run(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	var goalID *uuid.UUID

	if s := r.URL.Query().Get("goal_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid goal_id", http.StatusBadRequest)
			return
		}

		goalID = &id
	}

	txs := h.svc.Transactions(r.Context(), goalID, r.URL.Query().Get("tag_pattern"))

	writeJSON(w, http.StatusOK, toTransactionList(txs))
}

func (h *Handler) goalTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	txs := h.svc.Transactions(r.Context(), &id, "")

	writeJSON(w, http.StatusOK, toTransactionList(txs))
}

type historyResponse struct {
	Undone string `json:"undone,omitempty"`
	Redone string `json:"redone,omitempty"`
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	name, err := h.history.Undo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Undone: name})
}

func (h *Handler) redo(w http.ResponseWriter, r *http.Request) {
	name, err := h.history.Redo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Redone: name})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case goal.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, goal.ErrNotFound):
		http.Error(w, "goal not found", http.StatusNotFound)
	case errors.Is(err, undo.ErrNothingToUndo), errors.Is(err, undo.ErrNothingToRedo):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("goal request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
