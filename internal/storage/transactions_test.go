package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
)

func testTransaction(id, description, accountID string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        date,
		Description: description,
		AccountID:   accountID,
		Amount:      amount,
	}
}

func TestSaveTransactions_Upsert(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	txn := testTransaction("txn-1", "STARBUCKS", "visa", -6.50, date)

	if err := store.SaveTransactions(ctx, []model.Transaction{txn}); err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}

	txn.Category = "Dining"
	txn.Subcategory = "Coffee"
	if err := store.SaveTransactions(ctx, []model.Transaction{txn}); err != nil {
		t.Fatalf("Failed to upsert transaction: %v", err)
	}

	got, err := store.GetTransactionByID(ctx, "txn-1")
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if got.Category != "Dining" || got.Subcategory != "Coffee" {
		t.Errorf("Upsert did not update category: %+v", got)
	}
	if !got.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", got.Date, date)
	}
}

func TestGetTransactionsToCategorize(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	categorized := testTransaction("txn-1", "LOBLAWS #4", "chequing", -45.00, base)
	categorized.Category = "Groceries"

	transactions := []model.Transaction{
		categorized,
		testTransaction("txn-2", "SPOTIFY PREMIUM", "visa", -12.99, base.AddDate(0, 0, 2)),
		testTransaction("txn-3", "SHELL GAS", "chequing", -60.00, base.AddDate(0, 0, 1)),
		testTransaction("txn-4", "NETFLIX", "visa", -16.99, base.AddDate(0, 0, 3)),
	}
	if err := store.SaveTransactions(ctx, transactions); err != nil {
		t.Fatalf("Failed to save transactions: %v", err)
	}

	// All uncategorized, oldest first
	got, err := store.GetTransactionsToCategorize(ctx, "", 0)
	if err != nil {
		t.Fatalf("Failed to get transactions: %v", err)
	}
	wantOrder := []string{"txn-3", "txn-2", "txn-4"}
	if len(got) != len(wantOrder) {
		t.Fatalf("Got %d transactions, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("Transaction %d = %s, want %s", i, got[i].ID, want)
		}
	}

	// Account filter
	visa, err := store.GetTransactionsToCategorize(ctx, "visa", 0)
	if err != nil {
		t.Fatalf("Failed to get visa transactions: %v", err)
	}
	if len(visa) != 2 {
		t.Errorf("Got %d visa transactions, want 2", len(visa))
	}

	// Limit
	limited, err := store.GetTransactionsToCategorize(ctx, "", 1)
	if err != nil {
		t.Fatalf("Failed to get limited transactions: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "txn-3" {
		t.Errorf("Limit returned wrong transactions: %+v", limited)
	}
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetTransactionByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
