// Package training derives a labeled dataset from the categorization event
// log. The dataset is a pure projection: replaying the same log always yields
// the same samples.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/feature"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
)

// DefaultMinSamplesPerCategory is the minimum surviving-event count a label
// needs to be eligible for training.
const DefaultMinSamplesPerCategory = 5

// Sample is one labeled training example.
type Sample struct {
	TransactionID string
	Label         string
	Tokens        []string
	Amount        float64
}

// Dataset is the labeled training set derived from the event log.
type Dataset struct {
	CountByLabel map[string]int
	Samples      []Sample
	Labels       []string // sorted unique labels
}

// Builder replays the event log into a Dataset.
type Builder struct {
	store      service.EventStore
	minSamples int
}

// NewBuilder creates a dataset builder over the given event store.
func NewBuilder(store service.EventStore, minSamples int) *Builder {
	if minSamples <= 0 {
		minSamples = DefaultMinSamplesPerCategory
	}
	return &Builder{
		store:      store,
		minSamples: minSamples,
	}
}

// Build replays the full event history into a labeled dataset.
//
// Supersession: only the chronologically last event per transaction
// contributes a label; timestamp ties are broken by insertion order
// (last-appended wins). Labels with fewer than the configured minimum of
// surviving events are excluded entirely. Fewer than two surviving labels is
// reported as common.ErrInsufficientData.
func (b *Builder) Build(ctx context.Context) (*Dataset, error) {
	events, err := b.store.QueryEvents(ctx, service.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to replay event log: %w", err)
	}

	// Events arrive ordered by timestamp then ID, so the last event seen for
	// a transaction is the surviving one.
	latest := make(map[string]model.CategorizationEvent)
	order := make([]string, 0, len(events))
	for _, event := range events {
		if _, seen := latest[event.TransactionID]; !seen {
			order = append(order, event.TransactionID)
		}
		latest[event.TransactionID] = event
	}

	countByLabel := make(map[string]int)
	for _, event := range latest {
		countByLabel[event.Label()]++
	}

	eligible := make(map[string]bool, len(countByLabel))
	for label, count := range countByLabel {
		if count >= b.minSamples {
			eligible[label] = true
		}
	}

	if len(eligible) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 categories with %d+ samples each, have %d (%s)",
			common.ErrInsufficientData, b.minSamples, len(eligible), summarizeCounts(countByLabel))
	}

	samples := make([]Sample, 0, len(latest))
	for _, transactionID := range order {
		event := latest[transactionID]
		label := event.Label()
		if !eligible[label] {
			continue
		}
		samples = append(samples, Sample{
			TransactionID: event.TransactionID,
			Label:         label,
			Tokens:        feature.Tokenize(event.Description),
			Amount:        event.Amount,
		})
	}

	labels := make([]string, 0, len(eligible))
	for label := range eligible {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	finalCounts := make(map[string]int, len(eligible))
	for label := range eligible {
		finalCounts[label] = countByLabel[label]
	}

	slog.Debug("Built training dataset",
		"events", len(events),
		"transactions", len(latest),
		"samples", len(samples),
		"categories", len(labels))

	return &Dataset{
		Samples:      samples,
		Labels:       labels,
		CountByLabel: finalCounts,
	}, nil
}

func summarizeCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "no labeled events"
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[label]))
	}
	return strings.Join(parts, ", ")
}
