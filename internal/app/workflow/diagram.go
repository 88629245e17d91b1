package workflow

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```[A-Za-z0-9_-]*")

// StripFences removes Markdown code fences (with or without a language tag)
// and surrounding whitespace.
func StripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}

var spaceReplacer = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u2007", " ", // figure space
	"\u202f", " ", // narrow no-break space
)

// NormalizeSpaces turns non-breaking whitespace into ordinary spaces.
func NormalizeSpaces(s string) string {
	return spaceReplacer.Replace(s)
}

// SanitizeDiagram cleans raw model output into Mermaid source.
func SanitizeDiagram(raw string) string {
	return ReflowDiagram(NormalizeSpaces(StripFences(raw)))
}

const edgeOps = `(?:-->|==>|-\.->|---)`

// Reflow rules, applied in order. Each one only ever inserts line breaks.
var reflowRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// indentation runs left over from a collapsed multi-line diagram
	{regexp.MustCompile(` {2,}`), "\n"},
	{regexp.MustCompile(`^((?:graph|flowchart)\s+(?:LR|RL|TB|TD|BT))\s+`), "$1\n"},
	{regexp.MustCompile(`\s+(subgraph\s)`), "\n$1"},
	{regexp.MustCompile(`(subgraph\s+[\w-]+(?:\s*\[[^\]]*\])?)[ \t]+([^\[\s])`), "$1\n$2"},
	{regexp.MustCompile(`\s+(direction\s+(?:LR|RL|TB|TD|BT))\s+`), "\n$1\n"},
	{regexp.MustCompile(`\s+end(?:\s+|$)`), "\nend\n"},
	{regexp.MustCompile(`\s+((?:classDef|class|style|linkStyle)\s)`), "\n$1"},
	// a node declaration followed by an edge statement
	{regexp.MustCompile(`([\]\)\}"])\s+(\w[\w-]*\s*` + edgeOps + `)`), "$1\n$2"},
	// two edge statements in a row
	{regexp.MustCompile(`(` + edgeOps + `(?:\|[^|]*\|)?\s*\w[\w-]*)[ \t]+(\w[\w-]*\s*` + edgeOps + `)`), "$1\n$2"},
}

const maxReflowPasses = 16

// ReflowDiagram restores line structure in a diagram that arrived collapsed
// onto a single line. It only acts when the text has neither a line break nor
// a statement separator; anything else is returned untouched, which makes the
// function idempotent. Best effort: a diagram it cannot split stays on one line.
func ReflowDiagram(s string) string {
	if strings.ContainsAny(s, "\n;") {
		return s
	}

	out := strings.TrimSpace(s)
	for range maxReflowPasses {
		prev := out
		for _, r := range reflowRules {
			out = r.re.ReplaceAllString(out, r.repl)
		}
		if out == prev {
			break
		}
	}

	lines := strings.Split(out, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
