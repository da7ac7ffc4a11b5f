// Package feature implements the shared feature extraction used by both
// training and inference. Keeping a single implementation behind a version
// constant guards against training/inference skew: a model artifact records
// the version it was fitted with, and prediction refuses to run against a
// different one.
package feature

import (
	"math"
	"strings"
	"unicode"
)

// Version identifies the feature extraction scheme. Bump it whenever
// tokenization or the amount transform changes in a way that invalidates
// fitted models.
const Version = 1

// Names of the numeric features appended after the vocabulary terms.
const (
	AmountMagnitudeName = "amount_magnitude"
	AmountSignName      = "amount_sign"
)

// Tokenize lowercases the description, strips non-alphanumeric runes and
// emits unigrams plus adjacent bigrams, so multi-word merchant patterns like
// "spotify premium" are captured as a single term.
func Tokenize(description string) []string {
	words := splitWords(description)
	if len(words) == 0 {
		return nil
	}

	tokens := make([]string, 0, 2*len(words)-1)
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+" "+words[i+1])
	}
	return tokens
}

func splitWords(description string) []string {
	lowered := strings.ToLower(description)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AmountFeatures compresses the amount magnitude with log1p so outliers do
// not dominate split decisions, and preserves the sign separately.
func AmountFeatures(amount float64) (magnitude, sign float64) {
	magnitude = math.Log1p(math.Abs(amount))
	switch {
	case amount > 0:
		sign = 1
	case amount < 0:
		sign = -1
	}
	return magnitude, sign
}
