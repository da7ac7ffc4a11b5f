// Package testutil provides shared test doubles, notably an in-memory
// implementation of service.Storage so tests never need a real database.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
)

// MemStore is an in-memory service.Storage. It mirrors the SQLite store's
// ordering semantics: events sort by timestamp ascending with insertion order
// breaking ties.
type MemStore struct {
	transactions map[string]model.Transaction
	events       []model.CategorizationEvent
	nextEventID  int64
	// FailAppends makes append operations fail, for storage-error paths.
	FailAppends bool
	mu          sync.RWMutex
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		transactions: make(map[string]model.Transaction),
		nextEventID:  1,
	}
}

// AppendEvent appends a single event and returns its assigned ID.
func (m *MemStore) AppendEvent(_ context.Context, event *model.CategorizationEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppends {
		return 0, fmt.Errorf("%w: append disabled", common.ErrStorage)
	}
	if !event.Source.Valid() {
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidSource, event.Source)
	}

	stored := *event
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	stored.ID = m.nextEventID
	m.nextEventID++
	m.events = append(m.events, stored)

	event.ID = stored.ID
	return stored.ID, nil
}

// AppendEvents appends a batch atomically: on failure nothing is stored.
func (m *MemStore) AppendEvents(_ context.Context, events []model.CategorizationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppends {
		return fmt.Errorf("%w: append disabled", common.ErrStorage)
	}
	for i := range events {
		if !events[i].Source.Valid() {
			return fmt.Errorf("%w: event %d has source %q", common.ErrInvalidSource, i, events[i].Source)
		}
	}

	for i := range events {
		stored := events[i]
		if stored.Timestamp.IsZero() {
			stored.Timestamp = time.Now().UTC()
		}
		stored.ID = m.nextEventID
		m.nextEventID++
		m.events = append(m.events, stored)
		events[i].ID = stored.ID
	}
	return nil
}

// QueryEvents returns events matching the filter in replay order.
func (m *MemStore) QueryEvents(_ context.Context, filter service.EventFilter) ([]model.CategorizationEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]model.CategorizationEvent, 0, len(m.events))
	for _, event := range m.events {
		if filter.AccountID != "" && event.AccountID != filter.AccountID {
			continue
		}
		if filter.Source != "" && event.Source != filter.Source {
			continue
		}
		if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && event.Timestamp.After(*filter.Until) {
			continue
		}
		matched = append(matched, event)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].ID < matched[j].ID
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// EventCount returns the number of stored events.
func (m *MemStore) EventCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events), nil
}

// CountEventsBySource returns per-source event counts.
func (m *MemStore) CountEventsBySource(_ context.Context) (map[model.Source]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[model.Source]int)
	for _, event := range m.events {
		counts[event.Source]++
	}
	return counts, nil
}

// SaveTransactions upserts transactions by ID.
func (m *MemStore) SaveTransactions(_ context.Context, transactions []model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txn := range transactions {
		m.transactions[txn.ID] = txn
	}
	return nil
}

// GetTransactionsToCategorize returns uncategorized transactions oldest first.
func (m *MemStore) GetTransactionsToCategorize(_ context.Context, accountID string, limit int) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]model.Transaction, 0, len(m.transactions))
	for _, txn := range m.transactions {
		if txn.Categorized() {
			continue
		}
		if accountID != "" && txn.AccountID != accountID {
			continue
		}
		matched = append(matched, txn)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].ID < matched[j].ID
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetTransactionByID returns a transaction or common.ErrNotFound.
func (m *MemStore) GetTransactionByID(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txn, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return &txn, nil
}

// Migrate is a no-op for the in-memory store.
func (m *MemStore) Migrate(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
