package intent

import (
	"encoding/json"
	"strings"

	"intentgate/internal/domain"
)

// Extract pulls a candidate intent out of free model text. It takes the span
// from the first "{" to the last "}", so braces inside surrounding prose can
// corrupt the span; such input simply yields no intent.
func Extract(raw string) (domain.CandidateIntent, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.CandidateIntent{}, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return domain.CandidateIntent{}, false
	}

	action, _ := obj["action"].(string)
	if strings.TrimSpace(action) == "" {
		return domain.CandidateIntent{}, false
	}

	params := map[string]any{}
	if p, ok := obj["parameters"].(map[string]any); ok {
		params = p
	}
	return domain.CandidateIntent{ActionName: action, Parameters: params}, true
}
