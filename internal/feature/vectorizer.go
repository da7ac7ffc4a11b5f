package feature

import (
	"math"
	"sort"
)

// Vectorizer holds a fitted vocabulary with inverse document frequencies.
// It is fitted once per training run and frozen; inference reuses the same
// instance so both sides of the model see identical features.
type Vectorizer struct {
	vocab   map[string]int
	idf     []float64
	terms   []string
	version int
}

// FitVectorizer builds a vocabulary and IDF weights from tokenized documents.
// Term order is sorted, so identical corpora always produce identical
// vectorizers.
func FitVectorizer(docs [][]string) *Vectorizer {
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, token := range doc {
			if !seen[token] {
				seen[token] = true
				docFreq[token]++
			}
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	total := float64(len(docs))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed IDF keeps terms present in every document non-zero.
		idf[i] = math.Log((1+total)/(1+float64(docFreq[term]))) + 1
	}

	return &Vectorizer{
		vocab:   vocab,
		idf:     idf,
		terms:   terms,
		version: Version,
	}
}

// Version returns the feature scheme version the vectorizer was fitted with.
func (v *Vectorizer) Version() int {
	return v.version
}

// NumFeatures returns the full feature dimensionality: one per vocabulary
// term plus the two amount features.
func (v *Vectorizer) NumFeatures() int {
	return len(v.terms) + 2
}

// FeatureName returns the human-readable name of a feature index, used for
// importance reporting.
func (v *Vectorizer) FeatureName(index int) string {
	switch {
	case index < len(v.terms):
		return v.terms[index]
	case index == len(v.terms):
		return AmountMagnitudeName
	default:
		return AmountSignName
	}
}

// Vector produces the dense feature vector for a tokenized description and
// amount: TF-IDF weights over the frozen vocabulary followed by the amount
// magnitude and sign. Tokens outside the vocabulary are ignored.
func (v *Vectorizer) Vector(tokens []string, amount float64) []float64 {
	vec := make([]float64, v.NumFeatures())

	if len(tokens) > 0 {
		counts := make(map[int]int, len(tokens))
		for _, token := range tokens {
			if idx, ok := v.vocab[token]; ok {
				counts[idx]++
			}
		}

		var norm float64
		for idx, count := range counts {
			weight := (float64(count) / float64(len(tokens))) * v.idf[idx]
			vec[idx] = weight
			norm += weight * weight
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range counts {
				vec[idx] /= norm
			}
		}
	}

	magnitude, sign := AmountFeatures(amount)
	vec[len(v.terms)] = magnitude
	vec[len(v.terms)+1] = sign

	return vec
}
