package workflow

import "regexp"

var (
	// ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	// greedy fallback for a bare object surrounded by prose
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSONObject pulls the JSON object out of model output. Models wrap
// it in fences, add prose around it or leave trailing commas; all three are
// tolerated. Returns "" when no object is present.
func extractJSONObject(content string) string {
	raw := ""
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}
