package decision

import (
	"context"

	"github.com/cinnamon-ledger/cinnamon/internal/classifier"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/training"
)

// Categorizer is the classifier dependency of the decision engine.
type Categorizer interface {
	Train(ctx context.Context, ds *training.Dataset) (classifier.Metrics, error)
	Predict(ctx context.Context, transactions []model.Transaction, confidenceThreshold float64) ([]model.Prediction, error)
}

// Prompter drives the interactive review session. Review presents one pending
// item and returns the reviewer's decision.
type Prompter interface {
	Review(ctx context.Context, item ReviewItem, position, total int) (Decision, error)
}
