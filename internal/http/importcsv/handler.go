package importcsv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/importer"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
	tagSvc    *tagging.Service
	recalc    *goal.Recalculator
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service, tagSvc *tagging.Service, recalc *goal.Recalculator) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
		tagSvc:    tagSvc,
		recalc:    recalc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type transactionResponse struct {
	ID                  uuid.UUID  `json:"id"`
	AccountID           *uuid.UUID `json:"account_id,omitempty"`
	Amount              int64      `json:"amount"`
	Notes               string     `json:"notes"`
	ImportedDescription string     `json:"imported_description"`
	Date                string     `json:"date"`
	CreatedAt           time.Time  `json:"created_at"`
}

type importSuccessResponse struct {
	Imported     int                   `json:"imported"`
	Tagged       int                   `json:"tagged"`
	Transactions []transactionResponse `json:"transactions"`
}

type createParamsDTO struct {
	AccountID           *uuid.UUID `json:"account_id,omitempty"`
	Amount              int64      `json:"amount"`
	Notes               string     `json:"notes"`
	ImportedDescription string     `json:"imported_description"`
	Date                string     `json:"date"`
}

type conflictDTO struct {
	Incoming createParamsDTO     `json:"incoming"`
	Existing transactionResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []createParamsDTO `json:"new"`
	Conflicts []conflictDTO     `json:"conflicts"`
}

type confirmRequest struct {
	Params []createParamsDTO `json:"params"`
}

// importCSV parses an uploaded statement, applies tag rules and stores the
// lines. When some lines already exist nothing is stored and the split is
// returned with 409 so the client can confirm.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var accountID *uuid.UUID

	if s := r.FormValue("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid account_id", http.StatusBadRequest)
			return
		}

		accountID = &id
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(importer.Format(r.FormValue("format")), accountID, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tagged, err := h.tagSvc.Apply(r.Context(), params)
	if err != nil {
		slog.Warn("tag rules not applied", "error", err)
	}

	result, err := h.txSvc.ImportBatch(r.Context(), params)
	if err != nil {
		slog.Error("failed to import transactions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]createParamsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toTxResponse(c.Existing),
			})
		}

		writeJSON(w, http.StatusConflict, resp)

		return
	}

	h.recalculate(r.Context())

	resp := toSuccessResponse(result.Imported)
	resp.Tagged = tagged

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Params))
	for i, p := range req.Params {
		d, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date in params[%d]", i), http.StatusBadRequest)
			return
		}

		params = append(params, transaction.CreateParams{
			AccountID:           p.AccountID,
			Amount:              p.Amount,
			Notes:               p.Notes,
			ImportedDescription: p.ImportedDescription,
			Date:                d,
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), params)
	if err != nil {
		slog.Error("failed to store confirmed import", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	h.recalculate(r.Context())

	writeJSON(w, http.StatusCreated, toSuccessResponse(txs))
}

// recalculate brings goal progress up to date with the new ledger lines. The
// import itself already succeeded, so failures are only logged.
func (h *Handler) recalculate(ctx context.Context) {
	if _, err := h.recalc.Run(ctx); err != nil {
		slog.Error("failed to recalculate goals after import", "error", err)
	}
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, toTxResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}

func toTxResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:                  tx.ID,
		AccountID:           tx.AccountID,
		Amount:              tx.Amount,
		Notes:               tx.Notes,
		ImportedDescription: tx.ImportedDescription,
		Date:                tx.Date.Format(time.DateOnly),
		CreatedAt:           tx.CreatedAt,
	}
}

func toParamsDTO(p transaction.CreateParams) createParamsDTO {
	return createParamsDTO{
		AccountID:           p.AccountID,
		Amount:              p.Amount,
		Notes:               p.Notes,
		ImportedDescription: p.ImportedDescription,
		Date:                p.Date.Format(time.DateOnly),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
