package goal

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const UnknownAccount = "Unknown account"

// GoalTransaction is a matched ledger row prepared for display.
type GoalTransaction struct {
	ID          uuid.UUID
	Date        time.Time
	Amount      int64
	Description string // Tag stripped
	Notes       string // As stored
	Account     string
}

// Transactions lists every live transaction carrying the tag, inflows and
// outflows alike, newest first. When tagPattern is empty it is taken from
// goalID. Failures are logged and produce an empty list.
func (s *Service) Transactions(ctx context.Context, goalID *uuid.UUID, tagPattern string) []GoalTransaction {
	if tagPattern == "" && goalID != nil {
		g, err := s.repo.GetGoal(ctx, *goalID)
		if err != nil {
			s.logger.Error("failed to resolve goal for transactions", "goal_id", *goalID, "error", err)
			return []GoalTransaction{}
		}

		tagPattern = g.TagPattern
	}

	if ValidatePattern(tagPattern) != nil {
		return []GoalTransaction{}
	}

	txs, err := s.repo.ListTaggedTransactions(ctx, Tag(tagPattern))
	if err != nil {
		s.logger.Error("failed to fetch goal transactions", "tag_pattern", tagPattern, "error", err)
		return []GoalTransaction{}
	}

	return Present(tagPattern, txs)
}

// Present filters txs down to those carrying the tag and orders them by date,
// newest first.
func Present(pattern string, txs []*TaggedTransaction) []GoalTransaction {
	out := make([]GoalTransaction, 0, len(txs))

	for _, tx := range txs {
		if !Matches(pattern, tx.Notes, tx.ImportedDescription) {
			continue
		}

		out = append(out, GoalTransaction{
			ID:          tx.ID,
			Date:        tx.Date,
			Amount:      tx.Amount,
			Description: DisplayDescription(pattern, tx.Notes, tx.ImportedDescription),
			Notes:       tx.Notes,
			Account:     cmp.Or(tx.AccountName, UnknownAccount),
		})
	}

	slices.SortStableFunc(out, func(a, b GoalTransaction) int {
		return b.Date.Compare(a.Date)
	})

	return out
}

// DisplayDescription picks the text to show for a matched transaction. Notes
// win; the imported description is used when only it carries the tag or when
// notes are empty.
func DisplayDescription(pattern, notes, importedDescription string) string {
	tag := Tag(pattern)

	switch {
	case strings.Contains(notes, tag):
		return StripTag(notes, pattern)
	case strings.Contains(importedDescription, tag):
		return StripTag(importedDescription, pattern)
	case notes != "":
		return notes
	default:
		return importedDescription
	}
}
