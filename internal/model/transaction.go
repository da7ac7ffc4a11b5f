// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// Transaction represents a single financial transaction from the surrounding
// ledger. It is read-only to the categorization core; category changes are
// expressed as CategorizationEvents, never as direct mutation.
type Transaction struct {
	Date        time.Time
	ID          string
	Description string // Raw transaction description
	AccountID   string
	Category    string
	Subcategory string
	Amount      float64
}

// Categorized reports whether the transaction already carries a category.
func (t *Transaction) Categorized() bool {
	return t.Category != ""
}

// JoinLabel combines a category and optional subcategory into a single
// training label, e.g. "Entertainment:Music".
func JoinLabel(category, subcategory string) string {
	if subcategory == "" {
		return category
	}
	return category + ":" + subcategory
}

// SplitLabel splits a training label back into category and subcategory.
func SplitLabel(label string) (category, subcategory string) {
	if idx := strings.Index(label, ":"); idx >= 0 {
		return label[:idx], label[idx+1:]
	}
	return label, ""
}
