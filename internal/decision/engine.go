// Package decision implements the decision engine: it trains the classifier
// from the event log, predicts categories for uncategorized transactions,
// optionally runs an interactive review session, and commits the finalized
// batch as new categorization events in a single atomic append.
package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinnamon-ledger/cinnamon/internal/classifier"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
	"github.com/cinnamon-ledger/cinnamon/internal/training"
)

// DefaultConfidenceThreshold is the minimum posterior probability required to
// surface a prediction.
const DefaultConfidenceThreshold = 0.7

// Options configures an auto-categorization run. The zero value is not
// usable; start from DefaultOptions.
type Options struct {
	AccountID           string
	ConfidenceThreshold float64
	Limit               int
	MinSamples          int
	Write               bool
	Interactive         bool
}

// DefaultOptions returns the documented defaults: dry-run, non-interactive,
// threshold 0.7, five samples per category.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MinSamples:          training.DefaultMinSamplesPerCategory,
	}
}

// Result reports what an auto-categorization run did (or, in dry-run mode,
// would have done).
type Result struct {
	Metrics        classifier.Metrics
	Items          []ReviewItem
	Committed      int
	Approved       int
	Rejected       int
	Modified       int
	BelowThreshold int
	DryRun         bool
	QuitEarly      bool
}

// Engine orchestrates prediction, thresholds, interactive review and commit.
type Engine struct {
	storage     service.Storage
	categorizer Categorizer
	prompter    Prompter
}

// New creates a decision engine with the given dependencies. The prompter may
// be nil when interactive mode is never used.
func New(storage service.Storage, categorizer Categorizer, prompter Prompter) *Engine {
	return &Engine{
		storage:     storage,
		categorizer: categorizer,
		prompter:    prompter,
	}
}

// AutoCategorize runs the full pipeline. Zero proposals is a success; only
// storage failures, an untrainable dataset, or an untrained model are errors.
// Nothing is persisted unless opts.Write is true, and the commit is a single
// all-or-none batch append after the whole session is finalized.
func (e *Engine) AutoCategorize(ctx context.Context, opts Options) (*Result, error) {
	if opts.Interactive && e.prompter == nil {
		return nil, errors.New("interactive mode requires a prompter")
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	transactions, err := e.storage.GetTransactionsToCategorize(ctx, opts.AccountID, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load uncategorized transactions: %w", err)
	}

	result := &Result{DryRun: !opts.Write}

	if len(transactions) == 0 {
		slog.Info("No uncategorized transactions found", "account", opts.AccountID)
		return result, nil
	}

	builder := training.NewBuilder(e.storage, opts.MinSamples)
	dataset, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	metrics, err := e.categorizer.Train(ctx, dataset)
	if err != nil {
		return nil, err
	}
	result.Metrics = metrics

	predictions, err := e.categorizer.Predict(ctx, transactions, opts.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	for i := range transactions {
		if !predictions[i].OK {
			result.BelowThreshold++
			continue
		}
		result.Items = append(result.Items, ReviewItem{
			Transaction: transactions[i],
			Category:    predictions[i].Category,
			Subcategory: predictions[i].Subcategory,
			Confidence:  predictions[i].Confidence,
			State:       StatePending,
		})
	}

	slog.Info("Staged categorization proposals",
		"transactions", len(transactions),
		"proposals", len(result.Items),
		"below_threshold", result.BelowThreshold,
		"threshold", opts.ConfidenceThreshold)

	if opts.Interactive {
		if err := e.reviewSession(ctx, result); err != nil {
			return nil, err
		}
	} else {
		for i := range result.Items {
			result.Items[i].State = StateApproved
			result.Items[i].FinalCategory = result.Items[i].Category
			result.Items[i].FinalSubcategory = result.Items[i].Subcategory
		}
	}

	e.tally(result)

	if opts.Write {
		committed, err := e.commit(ctx, result.Items, opts.Interactive)
		if err != nil {
			return nil, err
		}
		result.Committed = committed
	}

	return result, nil
}

// reviewSession walks each pending item through the reviewer. Quit ends the
// session immediately; items finalized so far keep their state, the rest
// remain pending and untouched.
func (e *Engine) reviewSession(ctx context.Context, result *Result) error {
	total := len(result.Items)
	for i := range result.Items {
		if err := ctx.Err(); err != nil {
			result.QuitEarly = true
			return nil
		}

		d, err := e.prompter.Review(ctx, result.Items[i], i+1, total)
		if err != nil {
			return fmt.Errorf("review failed: %w", err)
		}

		if d.Action == ActionQuit {
			result.QuitEarly = true
			return nil
		}

		if err := result.Items[i].apply(d); err != nil {
			return err
		}
	}
	return nil
}

// commit appends one event per finalized item in a single storage
// transaction. Interactive decisions are user-sourced; unattended ones are
// rule-sourced (model-driven).
func (e *Engine) commit(ctx context.Context, items []ReviewItem, interactive bool) (int, error) {
	source := model.SourceRule
	if interactive {
		source = model.SourceUser
	}

	now := time.Now().UTC()
	events := make([]model.CategorizationEvent, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.State != StateApproved && item.State != StateModified {
			continue
		}
		events = append(events, model.CategorizationEvent{
			TransactionID:    item.Transaction.ID,
			Description:      item.Transaction.Description,
			Amount:           item.Transaction.Amount,
			AccountID:        item.Transaction.AccountID,
			Category:         item.FinalCategory,
			Subcategory:      item.FinalSubcategory,
			PreviousCategory: item.Transaction.Category,
			Source:           source,
			Timestamp:        now,
		})
	}

	if len(events) == 0 {
		return 0, nil
	}

	if err := e.storage.AppendEvents(ctx, events); err != nil {
		return 0, fmt.Errorf("failed to commit categorization batch: %w", err)
	}

	slog.Info("Committed categorization events", "count", len(events), "source", source)
	return len(events), nil
}

func (e *Engine) tally(result *Result) {
	for i := range result.Items {
		switch result.Items[i].State {
		case StateApproved:
			result.Approved++
		case StateRejected:
			result.Rejected++
		case StateModified:
			result.Modified++
		case StatePending:
		}
	}
}
