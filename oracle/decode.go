package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON tries to unmarshal raw model output into T after stripping
// markdown fences. Model output is not guaranteed clean; callers must treat a
// returned error as "oracle gave no usable answer", not as a fatal condition.
func DecodeJSON[T any](raw string) (*T, error) {
	clean := SanitizeJSON(raw)
	var out T
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return &out, nil
}

// SanitizeJSON strips a leading markdown code fence (``` or ```json) and the
// matching closing fence from raw oracle output.
func SanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if idx := strings.Index(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}
