package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
)

// SaveTransactions upserts transactions by ID. This is upstream ingestion's
// entry point; the categorization core itself only reads.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", common.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, date, description, amount, account_id, category, subcategory)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			description = excluded.description,
			amount = excluded.amount,
			account_id = excluded.account_id,
			category = excluded.category,
			subcategory = excluded.subcategory
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare statement: %v", common.ErrStorage, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		t := &transactions[i]
		if _, err := stmt.ExecContext(ctx,
			t.ID,
			t.Date.UTC().Format(timeFormat),
			t.Description,
			t.Amount,
			t.AccountID,
			nullableString(t.Category),
			nullableString(t.Subcategory),
		); err != nil {
			return fmt.Errorf("%w: failed to save transaction %s: %v", common.ErrStorage, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transactions: %v", common.ErrStorage, err)
	}

	return nil
}

// GetTransactionsToCategorize returns uncategorized transactions, optionally
// filtered by account and capped by limit, oldest first.
func (s *SQLiteStorage) GetTransactionsToCategorize(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, date, description, amount, account_id, category, subcategory
		FROM transactions
		WHERE category IS NULL OR category = ''
	`
	args := make([]any, 0, 2)

	if accountID != "" {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}

	query += ` ORDER BY date ASC, id ASC`

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query transactions: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate transactions: %v", common.ErrStorage, err)
	}

	return transactions, nil
}

// GetTransactionByID returns a single transaction or common.ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, description, amount, account_id, category, subcategory
		FROM transactions
		WHERE id = ?
	`, id)

	var txn model.Transaction
	var category, subcategory sql.NullString
	var date string
	err := row.Scan(&txn.ID, &date, &txn.Description, &txn.Amount, &txn.AccountID, &category, &subcategory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get transaction: %v", common.ErrStorage, err)
	}

	txn.Category = category.String
	txn.Subcategory = subcategory.String
	if txn.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
		return nil, fmt.Errorf("%w: failed to parse transaction date %q: %v", common.ErrStorage, date, err)
	}

	return &txn, nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var txn model.Transaction
	var category, subcategory sql.NullString
	var date string

	if err := rows.Scan(&txn.ID, &date, &txn.Description, &txn.Amount, &txn.AccountID, &category, &subcategory); err != nil {
		return model.Transaction{}, fmt.Errorf("%w: failed to scan transaction: %v", common.ErrStorage, err)
	}

	txn.Category = category.String
	txn.Subcategory = subcategory.String

	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: failed to parse transaction date %q: %v", common.ErrStorage, date, err)
	}
	txn.Date = parsed

	return txn, nil
}
