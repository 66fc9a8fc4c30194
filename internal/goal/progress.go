package goal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ComputeProgress recomputes and stores the cached progress of a goal.
// A goal that does not exist or was deleted yields 0 without an error.
func (s *Service) ComputeProgress(ctx context.Context, id uuid.UUID) (int64, error) {
	g, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}

		return 0, fmt.Errorf("loading goal: %w", err)
	}

	if err := s.refreshProgress(ctx, g); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}

		return 0, err
	}

	return g.CurrentAmount, nil
}

// refreshProgress writes the current contribution total into g and the store.
func (s *Service) refreshProgress(ctx context.Context, g *Goal) error {
	txs, err := s.repo.ListTaggedTransactions(ctx, Tag(g.TagPattern))
	if err != nil {
		return fmt.Errorf("listing tagged transactions: %w", err)
	}

	total := Contributions(g.TagPattern, txs)
	at := s.now()

	if err := s.repo.SetProgress(ctx, g.ID, total, at); err != nil {
		return fmt.Errorf("storing progress: %w", err)
	}

	g.CurrentAmount = total
	g.UpdatedAt = at

	return nil
}

// Contributions sums the inflows among txs that carry the pattern's tag.
// Outflows, such as the debit leg of a transfer, neither count nor subtract.
func Contributions(pattern string, txs []*TaggedTransaction) int64 {
	var total int64

	for _, tx := range txs {
		if tx.Amount <= 0 {
			continue
		}

		if !Matches(pattern, tx.Notes, tx.ImportedDescription) {
			continue
		}

		total += tx.Amount
	}

	return total
}
