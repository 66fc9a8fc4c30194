package goal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("goal not found")

// ValidationError reports a missing or invalid field on a create or update request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Goal is a savings target whose progress is the sum of tagged ledger inflows.
type Goal struct {
	ID            uuid.UUID
	Name          string
	Description   *string
	TargetAmount  int64 // Amount in cents
	CurrentAmount int64 // Cached progress in cents, see Service.ComputeProgress
	TargetDate    *time.Time
	TagPattern    string
	Color         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns how many cents are still missing, never below zero.
func (g *Goal) Remaining() int64 {
	return max(0, g.TargetAmount-g.CurrentAmount)
}

// Percent returns progress toward the target, capped at 100.
func (g *Goal) Percent() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}

	return min(100, float64(g.CurrentAmount)*100/float64(g.TargetAmount))
}

type CreateParams struct {
	Name         string
	Description  *string
	TargetAmount int64
	TargetDate   *time.Time
	TagPattern   string
	Color        string
}

// UpdateParams carries a partial update. Nil fields are left untouched.
type UpdateParams struct {
	Name            *string
	Description     *string
	TargetAmount    *int64
	TargetDate      *time.Time
	ClearTargetDate bool
	TagPattern      *string
	Color           *string
}

// Empty reports whether no field would change.
func (p UpdateParams) Empty() bool {
	return p.Name == nil && p.Description == nil && p.TargetAmount == nil &&
		p.TargetDate == nil && !p.ClearTargetDate && p.TagPattern == nil && p.Color == nil
}

// TaggedTransaction is a ledger row whose text fields may carry a goal tag.
type TaggedTransaction struct {
	ID                  uuid.UUID
	Date                time.Time
	Amount              int64 // Signed, in cents
	Notes               string
	ImportedDescription string
	AccountID           *uuid.UUID
	AccountName         string // Empty when the account could not be resolved
}

// RecalculateResult lists which goals were recomputed and which failed.
type RecalculateResult struct {
	Updated []uuid.UUID
	Failed  map[uuid.UUID]error
}
