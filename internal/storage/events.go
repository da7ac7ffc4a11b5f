package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
)

// AppendEvent durably appends a single categorization event and returns its
// assigned ID. The write is committed before return; on error nothing is
// persisted.
func (s *SQLiteStorage) AppendEvent(ctx context.Context, event *model.CategorizationEvent) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateEvent(event); err != nil {
		return 0, err
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %v", common.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.appendEventTx(ctx, tx, event)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit event: %v", common.ErrStorage, err)
	}

	event.ID = id
	return id, nil
}

// AppendEvents appends a batch of events in a single database transaction.
// Either every event is persisted or none are; this is the decision engine's
// commit path.
func (s *SQLiteStorage) AppendEvents(ctx context.Context, events []model.CategorizationEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range events {
		if err := validateEvent(&events[i]); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}

	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", common.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range events {
		if events[i].Timestamp.IsZero() {
			events[i].Timestamp = time.Now().UTC()
		}
		id, err := s.appendEventTx(ctx, tx, &events[i])
		if err != nil {
			return err
		}
		events[i].ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit event batch: %v", common.ErrStorage, err)
	}

	return nil
}

func (s *SQLiteStorage) appendEventTx(ctx context.Context, tx *sql.Tx, event *model.CategorizationEvent) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO events (
			transaction_id, description, amount, account_id,
			category, subcategory, previous_category, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.TransactionID,
		event.Description,
		event.Amount,
		event.AccountID,
		event.Category,
		nullableString(event.Subcategory),
		nullableString(event.PreviousCategory),
		string(event.Source),
		event.Timestamp.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert event: %v", common.ErrStorage, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read event id: %v", common.ErrStorage, err)
	}

	return id, nil
}

// QueryEvents returns events matching the filter, ordered by timestamp
// ascending with insertion order breaking ties. Reads are repeatable and
// never mutate state.
func (s *SQLiteStorage) QueryEvents(ctx context.Context, filter service.EventFilter) ([]model.CategorizationEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, transaction_id, description, amount, account_id,
		       category, subcategory, previous_category, source, created_at
		FROM events
		WHERE 1=1
	`
	args := make([]any, 0, 5)

	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC().Format(timeFormat))
	}
	if filter.Until != nil {
		query += ` AND created_at <= ?`
		args = append(args, filter.Until.UTC().Format(timeFormat))
	}

	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query events: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.CategorizationEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate events: %v", common.ErrStorage, err)
	}

	return events, nil
}

// EventCount returns the total number of events in the log.
func (s *SQLiteStorage) EventCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count events: %v", common.ErrStorage, err)
	}
	return count, nil
}

// CountEventsBySource returns per-source event counts.
func (s *SQLiteStorage) CountEventsBySource(ctx context.Context) (map[model.Source]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM events GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count events by source: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Source]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("%w: failed to scan source count: %v", common.ErrStorage, err)
		}
		counts[model.Source(source)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate source counts: %v", common.ErrStorage, err)
	}

	return counts, nil
}

func scanEvent(rows *sql.Rows) (model.CategorizationEvent, error) {
	var event model.CategorizationEvent
	var subcategory, previousCategory sql.NullString
	var source, createdAt string

	if err := rows.Scan(
		&event.ID,
		&event.TransactionID,
		&event.Description,
		&event.Amount,
		&event.AccountID,
		&event.Category,
		&subcategory,
		&previousCategory,
		&source,
		&createdAt,
	); err != nil {
		return model.CategorizationEvent{}, fmt.Errorf("%w: failed to scan event: %v", common.ErrStorage, err)
	}

	event.Subcategory = subcategory.String
	event.PreviousCategory = previousCategory.String
	event.Source = model.Source(source)

	timestamp, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.CategorizationEvent{}, fmt.Errorf("%w: failed to parse event timestamp %q: %v", common.ErrStorage, createdAt, err)
	}
	event.Timestamp = timestamp

	return event, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
