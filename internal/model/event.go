package model

import "time"

// Source indicates what produced a categorization decision.
type Source string

// Source constants. The set is closed; anything else is rejected at append.
const (
	SourceUser Source = "user"
	SourceRule Source = "rule"
	SourceLLM  Source = "llm"
)

// Valid reports whether the source is a member of the closed enumeration.
func (s Source) Valid() bool {
	switch s {
	case SourceUser, SourceRule, SourceLLM:
		return true
	}
	return false
}

// CategorizationEvent is an immutable record of a category decision for a
// transaction. Events are append-only; the event log is the single source of
// truth for what was decided and why.
type CategorizationEvent struct {
	Timestamp        time.Time
	TransactionID    string
	Description      string
	AccountID        string
	Category         string
	Subcategory      string // empty when no subcategory was assigned
	PreviousCategory string // empty when the transaction was uncategorized
	Source           Source
	Amount           float64
	ID               int64 // assigned by the store on append
}

// Label returns the training label for this event.
func (e *CategorizationEvent) Label() string {
	return JoinLabel(e.Category, e.Subcategory)
}
