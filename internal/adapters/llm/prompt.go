package llm

import (
	"strings"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// continuation closes a conversation that would otherwise not end with a
// user turn, or stands in for it when the call has no history at all.
const continuation = "Follow the instructions and produce the output now."

// Turn is one chat message as the backends see it.
type Turn struct {
	Assistant bool
	Text      string
}

// BuildTurns renders the conversation history as alternating chat turns.
// The result is never empty and always ends with a user turn.
func BuildTurns(convCtx domain.ConversationContext) []Turn {
	turns := make([]Turn, 0, len(convCtx.History)+1)
	for _, m := range convCtx.History {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		turns = append(turns, Turn{
			Assistant: m.Role == domain.RoleAssistant,
			Text:      text,
		})
	}

	if len(turns) == 0 || turns[len(turns)-1].Assistant {
		turns = append(turns, Turn{Text: continuation})
	}
	return turns
}

// userTexts returns the user's messages, oldest first.
func userTexts(history []domain.Message) []string {
	var out []string
	for _, m := range history {
		if m.Role == domain.RoleUser {
			out = append(out, strings.TrimSpace(m.Text))
		}
	}
	return out
}
