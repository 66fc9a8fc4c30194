package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order matches selectGoalColumns.
func scanGoal(s scanner) (*goal.Goal, error) {
	var g goal.Goal

	var desc sql.NullString

	var targetDate sql.NullTime

	if err := s.Scan(
		&g.ID, &g.Name, &desc, &g.TargetAmount, &g.CurrentAmount, &targetDate,
		&g.TagPattern, &g.Color, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if desc.Valid {
		g.Description = &desc.String
	}

	if targetDate.Valid {
		g.TargetDate = &targetDate.Time
	}

	return &g, nil
}

const selectGoalColumns = `
	id, name, description, target_amount, current_amount, target_date,
	tag_pattern, color, created_at, updated_at
`

func (s *Store) ListGoals(ctx context.Context) ([]*goal.Goal, error) {
	query := `SELECT ` + selectGoalColumns + `
		FROM goals
		WHERE tombstone = FALSE
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer rows.Close()

	goals := []*goal.Goal{}

	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}

		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating goal rows: %w", err)
	}

	return goals, nil
}

func (s *Store) GetGoal(ctx context.Context, id uuid.UUID) (*goal.Goal, error) {
	query := `SELECT ` + selectGoalColumns + `
		FROM goals
		WHERE id = $1 AND tombstone = FALSE`

	g, err := scanGoal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goal.ErrNotFound
		}

		return nil, fmt.Errorf("getting goal: %w", err)
	}

	return g, nil
}

func (s *Store) CreateGoal(ctx context.Context, g *goal.Goal) error {
	query := `
		INSERT INTO goals (id, name, description, target_amount, current_amount, target_date, tag_pattern, color, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, 0, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		g.ID,
		g.Name,
		nullableString(g.Description),
		g.TargetAmount,
		g.TargetDate,
		g.TagPattern,
		g.Color,
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}

	g.CurrentAmount = 0

	return nil
}

// UpdateGoal writes only the fields present in params. updated_at is always set.
func (s *Store) UpdateGoal(ctx context.Context, id uuid.UUID, params goal.UpdateParams, at time.Time) error {
	var (
		sets []string
		args []any
	)

	argIdx := 1

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Name != nil {
		set("name", *params.Name)
	}

	if params.Description != nil {
		sets = append(sets, fmt.Sprintf("description = NULLIF($%d, '')", argIdx))
		args = append(args, *params.Description)
		argIdx++
	}

	if params.TargetAmount != nil {
		set("target_amount", *params.TargetAmount)
	}

	if params.TargetDate != nil {
		set("target_date", *params.TargetDate)
	} else if params.ClearTargetDate {
		sets = append(sets, "target_date = NULL")
	}

	if params.TagPattern != nil {
		set("tag_pattern", *params.TagPattern)
	}

	if params.Color != nil {
		set("color", *params.Color)
	}

	set("updated_at", at)

	query := fmt.Sprintf(
		"UPDATE goals SET %s WHERE id = $%d AND tombstone = FALSE",
		strings.Join(sets, ", "), argIdx,
	)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating goal: %w", err)
	}

	return requireAffected(res)
}

func (s *Store) DeleteGoal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE goals
		SET tombstone = TRUE, updated_at = $1
		WHERE id = $2 AND tombstone = FALSE
	`

	return s.execAffected(ctx, "deleting goal", query, at, id)
}

func (s *Store) RestoreGoal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE goals
		SET tombstone = FALSE, updated_at = $1
		WHERE id = $2 AND tombstone = TRUE
	`

	return s.execAffected(ctx, "restoring goal", query, at, id)
}

func (s *Store) SetProgress(ctx context.Context, id uuid.UUID, amount int64, at time.Time) error {
	query := `
		UPDATE goals
		SET current_amount = $1, updated_at = $2
		WHERE id = $3 AND tombstone = FALSE
	`

	res, err := s.db.ExecContext(ctx, query, amount, at, id)
	if err != nil {
		return fmt.Errorf("setting goal progress: %w", err)
	}

	return requireAffected(res)
}

// ListTaggedTransactions uses strpos rather than LIKE so that '_' in a tag is
// matched literally.
func (s *Store) ListTaggedTransactions(ctx context.Context, tag string) ([]*goal.TaggedTransaction, error) {
	query := `
		SELECT t.id, t.date, t.amount, t.notes, t.imported_description, t.account_id, a.name
		FROM transactions t
		LEFT JOIN accounts a ON a.id = t.account_id AND a.tombstone = FALSE
		WHERE t.tombstone = FALSE
		  AND (strpos(t.notes, $1) > 0 OR strpos(t.imported_description, $1) > 0)
		ORDER BY t.date DESC, t.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("listing tagged transactions: %w", err)
	}
	defer rows.Close()

	var txs []*goal.TaggedTransaction

	for rows.Next() {
		var (
			tx          goal.TaggedTransaction
			accountID   *uuid.UUID
			accountName sql.NullString
		)

		if err := rows.Scan(
			&tx.ID, &tx.Date, &tx.Amount, &tx.Notes, &tx.ImportedDescription, &accountID, &accountName,
		); err != nil {
			return nil, fmt.Errorf("scanning tagged transaction: %w", err)
		}

		tx.AccountID = accountID
		tx.AccountName = accountName.String

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tagged transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) execAffected(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}

	return n > 0, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return goal.ErrNotFound
	}

	return nil
}

func nullableString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
