package workflow

import (
	"strings"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// Route is the branch taken after extraction.
type Route string

const (
	// RouteClarify asks the user one more question.
	RouteClarify Route = "clarify"
	// RouteFinalize produces the diagram and the report.
	RouteFinalize Route = "finalize"
)

// DefaultTriggerTokens are the words that signal the user wants the document now.
var DefaultTriggerTokens = []string{"yes", "generate", "report", "spec", "go ahead"}

// TriggerSet is a normalized set of agreement tokens. Matching is a
// case-insensitive substring test against the user's latest message.
type TriggerSet struct {
	tokens []string
}

// NewTriggerSet lower-cases, trims and de-duplicates tokens. Blank tokens
// are dropped: an empty token would match every message.
func NewTriggerSet(tokens []string) TriggerSet {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return TriggerSet{tokens: out}
}

func (t TriggerSet) Tokens() []string {
	return append([]string(nil), t.tokens...)
}

// Matches reports whether text contains any trigger token.
func (t TriggerSet) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range t.tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Decide finalizes only when a goal is known and the user's latest message
// carries an agreement token. Everything else goes back to clarification.
func Decide(req domain.RequirementsRecord, latestUserText string, triggers TriggerSet) Route {
	if req.HasGoal() && triggers.Matches(latestUserText) {
		return RouteFinalize
	}
	return RouteClarify
}
