package model

import "testing"

func TestSource_Valid(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		want   bool
	}{
		{name: "user", source: SourceUser, want: true},
		{name: "rule", source: SourceRule, want: true},
		{name: "llm", source: SourceLLM, want: true},
		{name: "empty", source: "", want: false},
		{name: "unknown", source: "import", want: false},
		{name: "case sensitive", source: "User", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestLabelRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		subcategory string
		label       string
	}{
		{name: "category only", category: "Groceries", label: "Groceries"},
		{name: "with subcategory", category: "Entertainment", subcategory: "Music", label: "Entertainment:Music"},
		{name: "subcategory with colon", category: "Misc", subcategory: "A:B", label: "Misc:A:B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinLabel(tt.category, tt.subcategory); got != tt.label {
				t.Errorf("JoinLabel = %q, want %q", got, tt.label)
			}
			category, subcategory := SplitLabel(tt.label)
			if category != tt.category || subcategory != tt.subcategory {
				t.Errorf("SplitLabel(%q) = (%q, %q), want (%q, %q)",
					tt.label, category, subcategory, tt.category, tt.subcategory)
			}
		})
	}
}

func TestEvent_Label(t *testing.T) {
	event := CategorizationEvent{Category: "Entertainment", Subcategory: "Music"}
	if got := event.Label(); got != "Entertainment:Music" {
		t.Errorf("Label = %q, want Entertainment:Music", got)
	}
}

func TestTransaction_Categorized(t *testing.T) {
	txn := Transaction{ID: "txn-1", Description: "LOBLAWS #4"}
	if txn.Categorized() {
		t.Error("Transaction without category reported as categorized")
	}
	txn.Category = "Groceries"
	if !txn.Categorized() {
		t.Error("Transaction with category reported as uncategorized")
	}
}
