package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/stash/internal/tagging"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindTag uses strpos on lowered text so that '%' and '_' in a pattern are
// literal.
func (s *Store) FindTag(ctx context.Context, importedDescription string) (string, error) {
	query := `
		SELECT tag
		FROM tag_rules
		WHERE strpos(lower($1), lower(raw_pattern)) > 0
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var tag string

	err := s.db.QueryRowContext(ctx, query, importedDescription).Scan(&tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding tag rule: %w", err)
	}

	return tag, nil
}

func (s *Store) CreateRule(ctx context.Context, r *tagging.Rule) error {
	query := `
		INSERT INTO tag_rules (raw_pattern, tag, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, r.RawPattern, r.Tag).Scan(&r.ID, &r.CreatedAt); err != nil {
		return fmt.Errorf("creating tag rule: %w", err)
	}

	return nil
}

func (s *Store) ListRules(ctx context.Context) ([]*tagging.Rule, error) {
	query := `
		SELECT id, raw_pattern, tag, created_at
		FROM tag_rules
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tag rules: %w", err)
	}
	defer rows.Close()

	rules := []*tagging.Rule{}

	for rows.Next() {
		var r tagging.Rule
		if err := rows.Scan(&r.ID, &r.RawPattern, &r.Tag, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag rule: %w", err)
		}

		rules = append(rules, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag rules: %w", err)
	}

	return rules, nil
}
