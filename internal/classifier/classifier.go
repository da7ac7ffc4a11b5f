// Package classifier fits and queries the statistical category predictor: a
// random forest over TF-IDF description features and the signed-log amount.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/feature"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/training"
)

// Config holds tuning parameters for training.
type Config struct {
	Trees        int
	MaxDepth     int
	MinLeafSize  int
	TestFraction float64
	Seed         int64
}

// DefaultConfig returns the default configuration. The fixed seed makes
// training deterministic for a given event log.
func DefaultConfig() Config {
	return Config{
		Trees:        64,
		MaxDepth:     16,
		MinLeafSize:  1,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Metrics summarizes a training run.
type Metrics struct {
	Categories    []string
	TotalSamples  int
	NumCategories int
	TrainSize     int
	TestSize      int
	TrainAccuracy float64
	TestAccuracy  float64
}

// Importance is one entry of the feature importance ranking.
type Importance struct {
	Feature string
	Score   float64
}

// artifact is the fitted model state. It is replaced wholesale on retrain and
// never partially updated.
type artifact struct {
	vectorizer     *feature.Vectorizer
	forest         *forest
	labels         []string
	metrics        Metrics
	featureVersion int
}

// Classifier is a category predictor. Concurrent Predict calls are safe;
// Train takes the write lock and swaps in a fresh artifact.
type Classifier struct {
	artifact *artifact
	cfg      Config
	mu       sync.RWMutex
}

// New creates an untrained classifier.
func New(cfg Config) *Classifier {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.MinLeafSize <= 0 {
		cfg.MinLeafSize = DefaultConfig().MinLeafSize
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = DefaultConfig().TestFraction
	}
	return &Classifier{cfg: cfg}
}

// Train fits a new model from the dataset, fully replacing any prior model.
// The split is stratified so every category appears in both partitions
// whenever it has enough members, and samples are weighted inversely to
// class frequency so common categories do not dominate the objective.
func (c *Classifier) Train(ctx context.Context, ds *training.Dataset) (Metrics, error) {
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}
	if ds == nil || len(ds.Labels) < 2 {
		return Metrics{}, fmt.Errorf("%w: need at least 2 categories to train", common.ErrInsufficientData)
	}

	vectorizer := fitVectorizer(ds)

	labelIndex := make(map[string]int, len(ds.Labels))
	for i, label := range ds.Labels {
		labelIndex[label] = i
	}

	x := make([][]float64, len(ds.Samples))
	y := make([]int, len(ds.Samples))
	for i, sample := range ds.Samples {
		x[i] = vectorizer.Vector(sample.Tokens, sample.Amount)
		y[i] = labelIndex[sample.Label]
	}

	rng := rand.New(rand.NewSource(c.cfg.Seed))
	trainIdx, testIdx := stratifiedSplit(y, len(ds.Labels), c.cfg.TestFraction, rng)

	weights := classBalancedWeights(y, trainIdx, len(ds.Labels))

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	trainW := make([]float64, len(trainIdx))
	for i, idx := range trainIdx {
		trainX[i] = x[idx]
		trainY[i] = y[idx]
		trainW[i] = weights[idx]
	}

	forest := growForest(trainX, trainY, trainW, len(ds.Labels), forestConfig{
		trees:       c.cfg.Trees,
		maxDepth:    c.cfg.MaxDepth,
		minLeafSize: c.cfg.MinLeafSize,
		numFeatures: vectorizer.NumFeatures(),
	}, rng)

	metrics := Metrics{
		Categories:    append([]string(nil), ds.Labels...),
		TotalSamples:  len(ds.Samples),
		NumCategories: len(ds.Labels),
		TrainSize:     len(trainIdx),
		TestSize:      len(testIdx),
		TrainAccuracy: accuracy(forest, x, y, trainIdx),
		TestAccuracy:  accuracy(forest, x, y, testIdx),
	}

	c.mu.Lock()
	c.artifact = &artifact{
		vectorizer:     vectorizer,
		forest:         forest,
		labels:         metrics.Categories,
		metrics:        metrics,
		featureVersion: vectorizer.Version(),
	}
	c.mu.Unlock()

	slog.Info("Trained classifier",
		"samples", metrics.TotalSamples,
		"categories", metrics.NumCategories,
		"train_accuracy", metrics.TrainAccuracy,
		"test_accuracy", metrics.TestAccuracy)

	return metrics, nil
}

// Predict returns one prediction per transaction. A transaction whose top
// label falls below the confidence threshold yields a prediction with
// OK=false; it never fails the batch. Lowering the threshold can only accept
// more predictions, never change an accepted label.
func (c *Classifier) Predict(ctx context.Context, transactions []model.Transaction, confidenceThreshold float64) ([]model.Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.artifact == nil {
		return nil, fmt.Errorf("%w: call Train before Predict", common.ErrModelNotTrained)
	}
	if c.artifact.featureVersion != feature.Version {
		return nil, fmt.Errorf("model artifact was fitted with feature version %d, current is %d; retrain required",
			c.artifact.featureVersion, feature.Version)
	}

	predictions := make([]model.Prediction, len(transactions))
	for i := range transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		txn := &transactions[i]
		vec := c.artifact.vectorizer.Vector(feature.Tokenize(txn.Description), txn.Amount)
		probs := c.artifact.forest.predict(vec)

		best := 0
		for class := 1; class < len(probs); class++ {
			if probs[class] > probs[best] {
				best = class
			}
		}

		if probs[best] >= confidenceThreshold {
			category, subcategory := model.SplitLabel(c.artifact.labels[best])
			predictions[i] = model.Prediction{
				Category:    category,
				Subcategory: subcategory,
				Confidence:  probs[best],
				OK:          true,
			}
		}
	}

	return predictions, nil
}

// FeatureImportances returns the learned per-feature importances, descending
// by score, truncated to topN. Diagnostic only.
func (c *Classifier) FeatureImportances(topN int) ([]Importance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.artifact == nil {
		return nil, fmt.Errorf("%w: call Train before FeatureImportances", common.ErrModelNotTrained)
	}

	scores := c.artifact.forest.normalizedImportances()
	ranked := make([]Importance, 0, len(scores))
	for idx, score := range scores {
		if score == 0 {
			continue
		}
		ranked = append(ranked, Importance{
			Feature: c.artifact.vectorizer.FeatureName(idx),
			Score:   score,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Feature < ranked[j].Feature
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

// Trained reports whether a model artifact is available.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.artifact != nil
}

func fitVectorizer(ds *training.Dataset) *feature.Vectorizer {
	docs := make([][]string, len(ds.Samples))
	for i, sample := range ds.Samples {
		docs[i] = sample.Tokens
	}
	return feature.FitVectorizer(docs)
}

// stratifiedSplit partitions sample indices so every class keeps roughly
// testFraction of its members in the test set, with at least one test member
// for any class that can spare one.
func stratifiedSplit(y []int, numClasses int, testFraction float64, rng *rand.Rand) (trainIdx, testIdx []int) {
	byClass := make([][]int, numClasses)
	for i, class := range y {
		byClass[class] = append(byClass[class], i)
	}

	for _, indices := range byClass {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		testN := int(float64(len(indices)) * testFraction)
		if testN == 0 && len(indices) >= 2 {
			testN = 1
		}

		testIdx = append(testIdx, indices[:testN]...)
		trainIdx = append(trainIdx, indices[testN:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

// classBalancedWeights assigns each sample the weight total/(classes*count)
// computed over the training partition.
func classBalancedWeights(y, trainIdx []int, numClasses int) []float64 {
	counts := make([]float64, numClasses)
	for _, idx := range trainIdx {
		counts[y[idx]]++
	}

	classWeight := make([]float64, numClasses)
	total := float64(len(trainIdx))
	for class, count := range counts {
		if count > 0 {
			classWeight[class] = total / (float64(numClasses) * count)
		}
	}

	weights := make([]float64, len(y))
	for i, class := range y {
		weights[i] = classWeight[class]
	}
	return weights
}

func accuracy(f *forest, x [][]float64, y, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}

	correct := 0
	for _, idx := range indices {
		probs := f.predict(x[idx])
		best := 0
		for class := 1; class < len(probs); class++ {
			if probs[class] > probs[best] {
				best = class
			}
		}
		if best == y[idx] {
			correct++
		}
	}
	return float64(correct) / float64(len(indices))
}
