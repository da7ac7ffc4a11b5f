package decision

import (
	"fmt"

	"github.com/cinnamon-ledger/cinnamon/internal/model"
)

// ReviewState is the per-item state of an interactive review session.
// Items start Pending and move to exactly one terminal state.
type ReviewState int

// Review states. All states other than StatePending are terminal.
const (
	StatePending ReviewState = iota
	StateApproved
	StateRejected
	StateModified
)

func (s ReviewState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	case StateModified:
		return "modified"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the state accepts no further transitions.
func (s ReviewState) Terminal() bool {
	return s != StatePending
}

// Action is the reviewer's input for a pending item.
type Action int

// Reviewer actions.
const (
	ActionApprove Action = iota
	ActionReject
	ActionModify
	ActionQuit
)

// Decision carries the reviewer's action; Category and Subcategory are only
// meaningful for ActionModify.
type Decision struct {
	Category    string
	Subcategory string
	Action      Action
}

// ReviewItem is one staged proposal moving through the review state machine.
type ReviewItem struct {
	Transaction      model.Transaction
	Category         string
	Subcategory      string
	FinalCategory    string
	FinalSubcategory string
	Confidence       float64
	State            ReviewState
}

// apply transitions a pending item to a terminal state. Quit is session-level
// and leaves the item untouched.
func (item *ReviewItem) apply(d Decision) error {
	if item.State.Terminal() {
		return fmt.Errorf("review item for transaction %s is already %s", item.Transaction.ID, item.State)
	}

	switch d.Action {
	case ActionApprove:
		item.State = StateApproved
		item.FinalCategory = item.Category
		item.FinalSubcategory = item.Subcategory
	case ActionReject:
		item.State = StateRejected
	case ActionModify:
		if d.Category == "" {
			return fmt.Errorf("modify decision for transaction %s has no category", item.Transaction.ID)
		}
		item.State = StateModified
		item.FinalCategory = d.Category
		item.FinalSubcategory = d.Subcategory
	case ActionQuit:
		// Session-level; handled by the engine.
	default:
		return fmt.Errorf("unknown review action %d", d.Action)
	}

	return nil
}
