package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timmy/retention/internal/domain"
)

// requiredFields is the exact field set a classification response must echo.
var requiredFields = []string{
	"retention_score",
	"category",
	"suggested_action",
	"confidence",
	"reasoning",
}

// parseDecision validates the raw model output into a RetentionDecision.
// The error, when non-nil, is the diagnostic to feed into the fallback
// decision's reasoning.
func parseDecision(raw string) (domain.RetentionDecision, error) {
	var zero domain.RetentionDecision

	cleaned := stripFences(raw)
	if cleaned == "" {
		return zero, fmt.Errorf("empty classification content")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return zero, fmt.Errorf("invalid JSON from LLM: %v", err)
	}

	var missing []string
	for _, key := range requiredFields {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return zero, fmt.Errorf("missing fields: [%s]", strings.Join(missing, ", "))
	}

	var decision domain.RetentionDecision
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return zero, fmt.Errorf("mistyped fields: %v", err)
	}
	if err := decision.Validate(); err != nil {
		return zero, err
	}
	return decision, nil
}

// stripFences removes a surrounding markdown code fence, a common wrapper
// around otherwise valid JSON model output.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	lines := strings.Split(cleaned, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
