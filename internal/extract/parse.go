package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes a leading/trailing markdown code fence (with optional
// language tag) so fenced and bare JSON parse identically.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// unmarshalResponse parses model output into v after fence stripping. A parse
// failure means the payload cannot be trusted at all.
func unmarshalResponse(text string, v any) error {
	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parse extraction JSON: %w (raw: %s)", err, truncate(text, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
