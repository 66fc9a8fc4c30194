package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/transaction"
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

// Expected column order matches selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var accountID *uuid.UUID

	var accountName sql.NullString

	if err := s.Scan(
		&tx.ID, &accountID, &accountName, &tx.Date, &tx.Amount,
		&tx.Notes, &tx.ImportedDescription, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.AccountID = accountID

	if accountID != nil && accountName.Valid {
		tx.Account = &transaction.Account{ID: *accountID, Name: accountName.String}
	}

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.account_id, a.name, t.date, t.amount,
	t.notes, t.imported_description, t.created_at, t.updated_at
`

const fromTransactions = `
	FROM transactions t
	LEFT JOIN accounts a ON a.id = t.account_id`

const insertTransaction = `
	INSERT INTO transactions (account_id, date, amount, notes, imported_description, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	RETURNING id, created_at, updated_at
`

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	err := s.db.QueryRowContext(ctx, insertTransaction,
		tx.AccountID,
		tx.Date,
		tx.Amount,
		tx.Notes,
		tx.ImportedDescription,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.id = $1 AND t.tombstone = FALSE`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.tombstone = FALSE`

	var args []any

	argIdx := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND t.account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY t.date DESC, t.created_at DESC"

	return queryTransactions(ctx, s.db, query, args...)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $1, date = $2, amount = $3, notes = $4, updated_at = NOW()
		WHERE id = $5 AND tombstone = FALSE
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.AccountID,
		tx.Date,
		tx.Amount,
		tx.Notes,
		tx.ID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET tombstone = TRUE, updated_at = NOW()
		WHERE id = $1 AND tombstone = FALSE
	`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting transaction: rows affected: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *transaction.Account) error {
	query := `
		INSERT INTO accounts (name)
		VALUES ($1)
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, a.Name).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*transaction.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM accounts ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*transaction.Account{}

	for rows.Next() {
		var a transaction.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	return accounts, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	txs := []*transaction.Transaction{}

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

// importLockKey serialises concurrent imports that cover the same dates so
// that duplicate detection sees a stable ledger.
func importLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte("import"))
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(minDate, maxDate)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

// FindDuplicates returns ledger rows in the batch's date range whose date,
// amount, account and imported description equal some incoming line.
func (itx *importTx) FindDuplicates(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	type lookupKey struct {
		Date      string
		Amount    int64
		Imported  string
		AccountID uuid.UUID
	}

	keyOf := func(date time.Time, amount int64, imported string, accountID *uuid.UUID) lookupKey {
		k := lookupKey{Date: date.Format(time.DateOnly), Amount: amount, Imported: imported}
		if accountID != nil {
			k.AccountID = *accountID
		}

		return k
	}

	minDate := params[0].Date
	maxDate := params[0].Date
	keySet := make(map[lookupKey]struct{}, len(params))

	for _, p := range params {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}

		keySet[keyOf(p.Date, p.Amount, p.ImportedDescription, p.AccountID)] = struct{}{}
	}

	query := `SELECT ` + selectTransactionColumns + fromTransactions + `
		WHERE t.tombstone = FALSE AND t.date >= $1 AND t.date <= $2
		ORDER BY t.date ASC`

	candidates, err := queryTransactions(ctx, itx.tx, query, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	var duplicates []*transaction.Transaction

	for _, tx := range candidates {
		if _, found := keySet[keyOf(tx.Date, tx.Amount, tx.ImportedDescription, tx.AccountID)]; found {
			duplicates = append(duplicates, tx)
		}
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		err := itx.tx.QueryRowContext(ctx, insertTransaction,
			tx.AccountID,
			tx.Date,
			tx.Amount,
			tx.Notes,
			tx.ImportedDescription,
		).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
