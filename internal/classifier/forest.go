package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// forestConfig holds the structural parameters for growing a forest.
type forestConfig struct {
	trees       int
	maxDepth    int
	minLeafSize int
	numFeatures int
}

// forest is an ensemble of decision trees fitted with weighted Gini impurity.
type forest struct {
	trees       []*treeNode
	importances []float64
	numClasses  int
}

// treeNode is either an internal split node (probs nil) or a leaf holding the
// weighted class distribution.
type treeNode struct {
	left      *treeNode
	right     *treeNode
	probs     []float64
	threshold float64
	feature   int
}

// growForest fits the ensemble. Each tree trains on a bootstrap resample and
// considers sqrt(numFeatures) candidate features per split.
func growForest(x [][]float64, y []int, weights []float64, numClasses int, cfg forestConfig, rng *rand.Rand) *forest {
	f := &forest{
		trees:       make([]*treeNode, 0, cfg.trees),
		importances: make([]float64, cfg.numFeatures),
		numClasses:  numClasses,
	}

	mtry := int(math.Ceil(math.Sqrt(float64(cfg.numFeatures))))
	if mtry < 1 {
		mtry = 1
	}

	g := &grower{
		x:           x,
		y:           y,
		weights:     weights,
		numClasses:  numClasses,
		cfg:         cfg,
		mtry:        mtry,
		rng:         rng,
		importances: f.importances,
	}

	for t := 0; t < cfg.trees; t++ {
		indices := make([]int, len(x))
		for i := range indices {
			indices[i] = rng.Intn(len(x))
		}
		f.trees = append(f.trees, g.grow(indices, 0))
	}

	return f
}

// predict returns the posterior distribution over classes, averaged across
// the ensemble.
func (f *forest) predict(vec []float64) []float64 {
	probs := make([]float64, f.numClasses)
	for _, root := range f.trees {
		node := root
		for node.probs == nil {
			if vec[node.feature] <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		for class, p := range node.probs {
			probs[class] += p
		}
	}

	for class := range probs {
		probs[class] /= float64(len(f.trees))
	}
	return probs
}

// normalizedImportances returns per-feature impurity-decrease scores that sum
// to 1 (all zeros when no split was ever made).
func (f *forest) normalizedImportances() []float64 {
	total := 0.0
	for _, v := range f.importances {
		total += v
	}

	scores := make([]float64, len(f.importances))
	if total == 0 {
		return scores
	}
	for i, v := range f.importances {
		scores[i] = v / total
	}
	return scores
}

type grower struct {
	x           [][]float64
	y           []int
	weights     []float64
	importances []float64
	rng         *rand.Rand
	numClasses  int
	mtry        int
	cfg         forestConfig
}

func (g *grower) grow(indices []int, depth int) *treeNode {
	counts := make([]float64, g.numClasses)
	var total float64
	for _, idx := range indices {
		counts[g.y[idx]] += g.weights[idx]
		total += g.weights[idx]
	}

	if depth >= g.cfg.maxDepth || len(indices) <= 2*g.cfg.minLeafSize || isPure(counts) {
		return leaf(counts, total)
	}

	bestFeature, bestThreshold, bestGain := g.bestSplit(indices, counts, total)
	if bestGain <= 0 {
		return leaf(counts, total)
	}

	g.importances[bestFeature] += bestGain * total

	var left, right []int
	for _, idx := range indices {
		if g.x[idx][bestFeature] <= bestThreshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	// Degenerate split; can happen with duplicated points
	if len(left) == 0 || len(right) == 0 {
		return leaf(counts, total)
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

// bestSplit scans a random subset of features for the threshold with the
// largest weighted Gini decrease.
func (g *grower) bestSplit(indices []int, parentCounts []float64, parentTotal float64) (bestFeature int, bestThreshold, bestGain float64) {
	bestFeature = -1
	parentGini := gini(parentCounts, parentTotal)

	candidates := g.rng.Perm(g.cfg.numFeatures)[:g.mtry]
	sort.Ints(candidates)

	type valueClass struct {
		value  float64
		weight float64
		class  int
	}

	for _, featureIdx := range candidates {
		points := make([]valueClass, len(indices))
		for i, idx := range indices {
			points[i] = valueClass{
				value:  g.x[idx][featureIdx],
				weight: g.weights[idx],
				class:  g.y[idx],
			}
		}
		sort.Slice(points, func(i, j int) bool { return points[i].value < points[j].value })

		leftCounts := make([]float64, g.numClasses)
		rightCounts := append([]float64(nil), parentCounts...)
		var leftTotal float64
		rightTotal := parentTotal

		for i := 0; i+1 < len(points); i++ {
			p := points[i]
			leftCounts[p.class] += p.weight
			rightCounts[p.class] -= p.weight
			leftTotal += p.weight
			rightTotal -= p.weight

			if points[i+1].value == p.value {
				continue
			}

			gain := parentGini -
				(leftTotal/parentTotal)*gini(leftCounts, leftTotal) -
				(rightTotal/parentTotal)*gini(rightCounts, rightTotal)

			if gain > bestGain {
				bestGain = gain
				bestFeature = featureIdx
				bestThreshold = (p.value + points[i+1].value) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}

	impurity := 1.0
	for _, count := range counts {
		p := count / total
		impurity -= p * p
	}
	return impurity
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, count := range counts {
		if count > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func leaf(counts []float64, total float64) *treeNode {
	probs := make([]float64, len(counts))
	if total > 0 {
		for class, count := range counts {
			probs[class] = count / total
		}
	}
	return &treeNode{probs: probs}
}
