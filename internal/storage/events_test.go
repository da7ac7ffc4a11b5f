package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
)

func testEvent(transactionID, category string, timestamp time.Time) model.CategorizationEvent {
	return model.CategorizationEvent{
		TransactionID: transactionID,
		Description:   "TEST MERCHANT",
		Amount:        -10.50,
		AccountID:     "chequing",
		Category:      category,
		Source:        model.SourceUser,
		Timestamp:     timestamp,
	}
}

func TestAppendEvent_AssignsID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	event := testEvent("txn-1", "Groceries", time.Now().UTC())
	id, err := store.AppendEvent(ctx, &event)
	if err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero event ID")
	}
	if event.ID != id {
		t.Errorf("Event ID not set on input: got %d, want %d", event.ID, id)
	}
}

func TestAppendEvent_RejectsInvalidSource(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	event := testEvent("txn-1", "Groceries", time.Now().UTC())
	event.Source = "typo"

	if _, err := store.AppendEvent(ctx, &event); !errors.Is(err, common.ErrInvalidSource) {
		t.Errorf("Expected ErrInvalidSource, got %v", err)
	}

	count, err := store.EventCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 0 {
		t.Errorf("Failed append persisted something: count = %d", count)
	}
}

func TestQueryEvents_OrderedByTimestampThenID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Append out of chronological order; the shared timestamp pair must come
	// back in insertion order.
	events := []model.CategorizationEvent{
		testEvent("txn-b", "Groceries", base.Add(time.Hour)),
		testEvent("txn-a", "Dining", base),
		testEvent("txn-c", "Transport", base.Add(time.Hour)),
	}
	for i := range events {
		if _, err := store.AppendEvent(ctx, &events[i]); err != nil {
			t.Fatalf("Failed to append event %d: %v", i, err)
		}
	}

	got, err := store.QueryEvents(ctx, service.EventFilter{})
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}

	wantOrder := []string{"txn-a", "txn-b", "txn-c"}
	if len(got) != len(wantOrder) {
		t.Fatalf("Got %d events, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].TransactionID != want {
			t.Errorf("Event %d = %s, want %s", i, got[i].TransactionID, want)
		}
	}
}

func TestQueryEvents_Filters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	chequing := testEvent("txn-1", "Groceries", base)
	savings := testEvent("txn-2", "Dining", base.Add(time.Hour))
	savings.AccountID = "savings"
	ruleEvent := testEvent("txn-3", "Transport", base.Add(2*time.Hour))
	ruleEvent.Source = model.SourceRule

	for _, e := range []*model.CategorizationEvent{&chequing, &savings, &ruleEvent} {
		if _, err := store.AppendEvent(ctx, e); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	byAccount, err := store.QueryEvents(ctx, service.EventFilter{AccountID: "savings"})
	if err != nil {
		t.Fatalf("Account filter failed: %v", err)
	}
	if len(byAccount) != 1 || byAccount[0].TransactionID != "txn-2" {
		t.Errorf("Account filter returned wrong events: %+v", byAccount)
	}

	bySource, err := store.QueryEvents(ctx, service.EventFilter{Source: model.SourceRule})
	if err != nil {
		t.Fatalf("Source filter failed: %v", err)
	}
	if len(bySource) != 1 || bySource[0].TransactionID != "txn-3" {
		t.Errorf("Source filter returned wrong events: %+v", bySource)
	}

	since := base.Add(30 * time.Minute)
	byTime, err := store.QueryEvents(ctx, service.EventFilter{Since: &since})
	if err != nil {
		t.Fatalf("Since filter failed: %v", err)
	}
	if len(byTime) != 2 {
		t.Errorf("Since filter returned %d events, want 2", len(byTime))
	}

	limited, err := store.QueryEvents(ctx, service.EventFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Limit filter failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Limit filter returned %d events, want 2", len(limited))
	}
}

func TestQueryEvents_RoundTripsFields(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	event := model.CategorizationEvent{
		TransactionID:    "txn-1",
		Description:      "SPOTIFY PREMIUM",
		Amount:           -12.99,
		AccountID:        "visa",
		Category:         "Entertainment",
		Subcategory:      "Music",
		PreviousCategory: "Uncategorized",
		Source:           model.SourceLLM,
		Timestamp:        time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
	}
	if _, err := store.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	got, err := store.QueryEvents(ctx, service.EventFilter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Got %d events, want 1", len(got))
	}

	if got[0].Subcategory != "Music" {
		t.Errorf("Subcategory = %q, want Music", got[0].Subcategory)
	}
	if got[0].PreviousCategory != "Uncategorized" {
		t.Errorf("PreviousCategory = %q, want Uncategorized", got[0].PreviousCategory)
	}
	if got[0].Source != model.SourceLLM {
		t.Errorf("Source = %q, want llm", got[0].Source)
	}
	if !got[0].Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, event.Timestamp)
	}
	if got[0].Label() != "Entertainment:Music" {
		t.Errorf("Label = %q, want Entertainment:Music", got[0].Label())
	}
}

func TestAppendEvents_AllOrNothing(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	batch := []model.CategorizationEvent{
		testEvent("txn-1", "Groceries", time.Now().UTC()),
		testEvent("txn-2", "Dining", time.Now().UTC()),
	}
	batch[1].Source = "bogus"

	if err := store.AppendEvents(ctx, batch); !errors.Is(err, common.ErrInvalidSource) {
		t.Fatalf("Expected ErrInvalidSource, got %v", err)
	}

	count, err := store.EventCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Partial batch persisted: count = %d, want 0", count)
	}

	batch[1].Source = model.SourceUser
	if err := store.AppendEvents(ctx, batch); err != nil {
		t.Fatalf("Valid batch failed: %v", err)
	}

	count, err = store.EventCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestAppendEvent_DurableAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	event := testEvent("txn-1", "Groceries", time.Now().UTC())
	if _, err := store.AppendEvent(ctx, &event); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	reopened, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Errorf("Failed to close reopened storage: %v", err)
		}
	}()

	events, err := reopened.QueryEvents(ctx, service.EventFilter{})
	if err != nil {
		t.Fatalf("Failed to query after reopen: %v", err)
	}
	if len(events) != 1 || events[0].TransactionID != "txn-1" {
		t.Errorf("Event not durable across reopen: %+v", events)
	}
}

func TestCountEventsBySource(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	user := testEvent("txn-1", "Groceries", now)
	rule1 := testEvent("txn-2", "Dining", now)
	rule1.Source = model.SourceRule
	rule2 := testEvent("txn-3", "Dining", now)
	rule2.Source = model.SourceRule

	for _, e := range []*model.CategorizationEvent{&user, &rule1, &rule2} {
		if _, err := store.AppendEvent(ctx, e); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	counts, err := store.CountEventsBySource(ctx)
	if err != nil {
		t.Fatalf("Failed to count by source: %v", err)
	}
	if counts[model.SourceUser] != 1 || counts[model.SourceRule] != 2 || counts[model.SourceLLM] != 0 {
		t.Errorf("Counts = %v, want user=1 rule=2 llm=0", counts)
	}
}
