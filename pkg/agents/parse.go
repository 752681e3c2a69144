package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	listItem    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+?)\s*$`)
)

var errEmptyResponse = errors.New("empty model response")

// decodeJSON parses model output into out. Markdown fences and surrounding prose are
// stripped first; malformed JSON (single quotes, trailing commas, truncation) is
// repaired and decoded again.
func decodeJSON(raw string, out any) error {
	content := extractJSON(raw)
	if content == "" {
		return errEmptyResponse
	}

	err := json.Unmarshal([]byte(content), out)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return fmt.Errorf("failed to decode model response: %w (repair: %v)", err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("failed to decode repaired model response: %w", err)
	}
	return nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	if start >= 0 {
		// Truncated object; jsonrepair closes it.
		return raw[start:]
	}
	return raw
}

// listItems returns the bullet or numbered lines of free text, without their markers.
func listItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := listItem.FindStringSubmatch(line); m != nil {
			items = append(items, m[1])
		}
	}
	return items
}

// prose returns text with list lines and fences removed, for heuristic fallbacks.
func prose(text string) string {
	text = fencedBlock.ReplaceAllString(text, "")
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if listItem.MatchString(line) {
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}
