package training

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/testutil"
)

func appendEvents(t *testing.T, store *testutil.MemStore, events ...model.CategorizationEvent) {
	t.Helper()
	for i := range events {
		_, err := store.AppendEvent(context.Background(), &events[i])
		require.NoError(t, err)
	}
}

func labeledEvent(transactionID, description, category string, timestamp time.Time) model.CategorizationEvent {
	return model.CategorizationEvent{
		TransactionID: transactionID,
		Description:   description,
		Amount:        -10,
		AccountID:     "chequing",
		Category:      category,
		Source:        model.SourceUser,
		Timestamp:     timestamp,
	}
}

// eventBlock appends count events for distinct transactions sharing a
// category, spaced a minute apart.
func eventBlock(prefix, category string, count int, base time.Time) []model.CategorizationEvent {
	events := make([]model.CategorizationEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, labeledEvent(
			prefix+string(rune('a'+i)),
			prefix+" MERCHANT",
			category,
			base.Add(time.Duration(i)*time.Minute),
		))
	}
	return events
}

func TestBuild_LastEventWins(t *testing.T) {
	store := testutil.NewMemStore()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	// Two eligible categories, then a correction on one transaction.
	appendEvents(t, store, eventBlock("grocery-", "Groceries", 3, base)...)
	appendEvents(t, store, eventBlock("dining-", "Dining", 2, base.Add(time.Hour))...)
	appendEvents(t, store, labeledEvent("grocery-a", "GROCERY- MERCHANT", "Dining", base.Add(2*time.Hour)))

	dataset, err := NewBuilder(store, 2).Build(context.Background())
	require.NoError(t, err)

	// Five transactions total; the corrected one counts once, under Dining.
	assert.Len(t, dataset.Samples, 5)
	assert.Equal(t, map[string]int{"Dining": 3, "Groceries": 2}, countLabels(dataset))
}

func TestBuild_TimestampTieBrokenByInsertionOrder(t *testing.T) {
	store := testutil.NewMemStore()
	ts := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	appendEvents(t, store, eventBlock("grocery-", "Groceries", 2, ts.Add(time.Hour))...)
	appendEvents(t, store, eventBlock("dining-", "Dining", 2, ts.Add(2*time.Hour))...)
	// Same transaction, identical timestamps: the later append supersedes.
	appendEvents(t, store,
		labeledEvent("txn-tie", "TIE MERCHANT", "Groceries", ts),
		labeledEvent("txn-tie", "TIE MERCHANT", "Dining", ts),
	)

	dataset, err := NewBuilder(store, 2).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Dining": 3, "Groceries": 2}, countLabels(dataset))
}

func TestBuild_FiltersSparseCategories(t *testing.T) {
	store := testutil.NewMemStore()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	appendEvents(t, store, eventBlock("grocery-", "Groceries", 5, base)...)
	appendEvents(t, store, eventBlock("dining-", "Dining", 5, base.Add(time.Hour))...)
	appendEvents(t, store, eventBlock("rare-", "Travel", 2, base.Add(2*time.Hour))...)

	dataset, err := NewBuilder(store, 5).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Dining", "Groceries"}, dataset.Labels)
	assert.Len(t, dataset.Samples, 10)
	for _, sample := range dataset.Samples {
		assert.NotEqual(t, "Travel", sample.Label)
	}
	assert.NotContains(t, dataset.CountByLabel, "Travel")
}

func TestBuild_InsufficientData(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("empty log", func(t *testing.T) {
		store := testutil.NewMemStore()
		_, err := NewBuilder(store, 5).Build(context.Background())
		assert.ErrorIs(t, err, common.ErrInsufficientData)
	})

	t.Run("single eligible category", func(t *testing.T) {
		store := testutil.NewMemStore()
		appendEvents(t, store, eventBlock("grocery-", "Groceries", 5, base)...)
		appendEvents(t, store, eventBlock("dining-", "Dining", 3, base.Add(time.Hour))...)

		_, err := NewBuilder(store, 5).Build(context.Background())
		assert.ErrorIs(t, err, common.ErrInsufficientData)
		assert.Contains(t, err.Error(), "Dining=3")
	})

	t.Run("corrections collapse to one transaction", func(t *testing.T) {
		store := testutil.NewMemStore()
		// Three events, but all for the same transaction.
		appendEvents(t, store,
			labeledEvent("txn-1", "MERCHANT", "Groceries", base),
			labeledEvent("txn-1", "MERCHANT", "Dining", base.Add(time.Minute)),
			labeledEvent("txn-1", "MERCHANT", "Groceries", base.Add(2*time.Minute)),
		)

		_, err := NewBuilder(store, 1).Build(context.Background())
		assert.ErrorIs(t, err, common.ErrInsufficientData)
	})
}

func TestBuild_SubcategoryInLabel(t *testing.T) {
	store := testutil.NewMemStore()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	events := eventBlock("spotify-", "Entertainment", 2, base)
	for i := range events {
		events[i].Subcategory = "Music"
	}
	appendEvents(t, store, events...)
	appendEvents(t, store, eventBlock("grocery-", "Groceries", 2, base.Add(time.Hour))...)

	dataset, err := NewBuilder(store, 2).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Entertainment:Music", "Groceries"}, dataset.Labels)
}

func TestBuild_Deterministic(t *testing.T) {
	store := testutil.NewMemStore()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	appendEvents(t, store, eventBlock("grocery-", "Groceries", 3, base)...)
	appendEvents(t, store, eventBlock("dining-", "Dining", 3, base.Add(time.Hour))...)

	builder := NewBuilder(store, 3)
	first, err := builder.Build(context.Background())
	require.NoError(t, err)
	second, err := builder.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_TokenizesDescriptions(t *testing.T) {
	store := testutil.NewMemStore()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	appendEvents(t, store,
		labeledEvent("txn-1", "SPOTIFY PREMIUM", "Entertainment", base),
		labeledEvent("txn-2", "SPOTIFY FAMILY", "Entertainment", base.Add(time.Minute)),
		labeledEvent("txn-3", "LOBLAWS #4", "Groceries", base.Add(2*time.Minute)),
		labeledEvent("txn-4", "LOBLAWS #9", "Groceries", base.Add(3*time.Minute)),
	)

	dataset, err := NewBuilder(store, 2).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, dataset.Samples, 4)

	assert.Equal(t, []string{"spotify", "premium", "spotify premium"}, dataset.Samples[0].Tokens)
}

func countLabels(dataset *Dataset) map[string]int {
	counts := make(map[string]int)
	for _, sample := range dataset.Samples {
		counts[sample.Label]++
	}
	return counts
}
