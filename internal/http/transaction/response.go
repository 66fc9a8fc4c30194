package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

type transactionResponse struct {
	ID                  uuid.UUID  `json:"id"`
	AccountID           *uuid.UUID `json:"account_id,omitempty"`
	Account             string     `json:"account,omitempty"`
	Date                string     `json:"date"`
	Amount              int64      `json:"amount"`
	Notes               string     `json:"notes"`
	ImportedDescription string     `json:"imported_description,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                  tx.ID,
		AccountID:           tx.AccountID,
		Date:                tx.Date.Format(time.DateOnly),
		Amount:              tx.Amount,
		Notes:               tx.Notes,
		ImportedDescription: tx.ImportedDescription,
		CreatedAt:           tx.CreatedAt,
		UpdatedAt:           tx.UpdatedAt,
	}

	if tx.Account != nil {
		resp.Account = tx.Account.Name
	}

	return resp
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

type accountResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountList(accounts []*transaction.Account) []accountResponse {
	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = accountResponse{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt}
	}

	return resp
}
