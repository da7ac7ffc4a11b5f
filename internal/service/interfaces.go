// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/model"
)

// EventFilter defines filtering options for event log queries.
type EventFilter struct {
	Since     *time.Time
	Until     *time.Time
	AccountID string
	Source    model.Source
	Limit     int
}

// EventStore is the append-only log of categorization decisions.
//
// Append is the only mutation. It must be durable before returning; a failed
// append means nothing was persisted. Queries are read-only and repeatable so
// that replaying the log for training is deterministic.
type EventStore interface {
	AppendEvent(ctx context.Context, event *model.CategorizationEvent) (int64, error)
	AppendEvents(ctx context.Context, events []model.CategorizationEvent) error
	QueryEvents(ctx context.Context, filter EventFilter) ([]model.CategorizationEvent, error)
	EventCount(ctx context.Context) (int, error)
	CountEventsBySource(ctx context.Context) (map[model.Source]int, error)
}

// TransactionReader provides read access to the surrounding ledger's
// transactions. The categorization core never writes transactions directly.
type TransactionReader interface {
	GetTransactionsToCategorize(ctx context.Context, accountID string, limit int) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	EventStore
	TransactionReader

	// SaveTransactions belongs to upstream ingestion; the core only reads.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CompletionStats shows the results of a review session.
type CompletionStats struct {
	TotalReviewed int
	Approved      int
	Rejected      int
	Modified      int
	Duration      time.Duration
}
