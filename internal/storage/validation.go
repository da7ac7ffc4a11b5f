package storage

import (
	"context"
	"fmt"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateEvent(event *model.CategorizationEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.TransactionID == "" {
		return fmt.Errorf("event transaction ID cannot be empty")
	}
	if event.Category == "" {
		return fmt.Errorf("event category cannot be empty")
	}
	if !event.Source.Valid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidSource, event.Source)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	for i := range transactions {
		if transactions[i].ID == "" {
			return fmt.Errorf("transaction %d has empty ID", i)
		}
	}
	return nil
}
