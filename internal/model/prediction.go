package model

// Prediction is the classifier's suggestion for a single transaction.
// OK is false when no label cleared the caller's confidence threshold; such
// transactions need manual categorization and are never treated as errors.
type Prediction struct {
	Category    string
	Subcategory string
	Confidence  float64
	OK          bool
}
