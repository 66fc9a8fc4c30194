package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrEmptyAccountName = errors.New("account name is required")
)

// Transaction represents a ledger entry. Goal tags live in Notes or
// ImportedDescription as "#tag".
type Transaction struct {
	ID                  uuid.UUID
	AccountID           *uuid.UUID
	Account             *Account // Loaded via JOIN
	Date                time.Time
	Amount              int64 // Signed, in cents. Inflows are positive.
	Notes               string
	ImportedDescription string
	CreatedAt           time.Time
	UpdatedAt           *time.Time
}

// Account is where a transaction was booked. Only its name is used for display.
type Account struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}
