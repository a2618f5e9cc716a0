package domain

import "fmt"

// Category is the retention category assigned by the classifier.
type Category string

const (
	CategoryLegal       Category = "legal"
	CategoryFinancial   Category = "financial"
	CategoryOperational Category = "operational"
	CategoryPersonal    Category = "personal"
	CategoryEphemeral   Category = "ephemeral"
	CategoryUnknown     Category = "unknown"
)

// Action is the retention action suggested by the classifier.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
	ActionRetain  Action = "retain"
	ActionReview  Action = "review"
)

// RetentionDecision is the structured retention decision for one document.
// A decision always exists for a processed file: when the classifier response
// cannot be validated, FallbackDecision substitutes for a raised error.
type RetentionDecision struct {
	Score      int      `json:"retention_score"`
	Category   Category `json:"category"`
	Action     Action   `json:"suggested_action"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// FallbackDecision returns the safe default decision used whenever a
// classifier response is missing, mistyped, or out of range.
func FallbackDecision(reason string) RetentionDecision {
	return RetentionDecision{
		Score:      50,
		Category:   CategoryUnknown,
		Action:     ActionReview,
		Confidence: 0.0,
		Reasoning:  reason,
	}
}

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryLegal, CategoryFinancial, CategoryOperational,
		CategoryPersonal, CategoryEphemeral, CategoryUnknown:
		return true
	}
	return false
}

// ValidAction reports whether a is in the closed action set.
func ValidAction(a Action) bool {
	switch a {
	case ActionDelete, ActionArchive, ActionRetain, ActionReview:
		return true
	}
	return false
}

// Validate checks the decision's field ranges and closed sets.
// Parameters: none.
// Returns:
//   - error: non-nil describing the first invalid field found.
func (d RetentionDecision) Validate() error {
	if d.Score < 0 || d.Score > 100 {
		return fmt.Errorf("retention_score %d outside [0,100]", d.Score)
	}
	if !ValidCategory(d.Category) {
		return fmt.Errorf("category %q not in allowed set", d.Category)
	}
	if !ValidAction(d.Action) {
		return fmt.Errorf("suggested_action %q not in allowed set", d.Action)
	}
	if d.Confidence < 0.0 || d.Confidence > 1.0 {
		return fmt.Errorf("confidence %.2f outside [0.0,1.0]", d.Confidence)
	}
	return nil
}
