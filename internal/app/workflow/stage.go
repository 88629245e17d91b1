package workflow

import (
	"context"
	"time"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// Node names.
const (
	NodeExtract  = "extract"
	NodeClarify  = "clarify"
	NodeDiagram  = "diagram"
	NodeDocument = "document"
)

type sessionKey struct{}

// WithSessionID tags ctx with the session a turn belongs to. Stages forward
// it to the capability and to the logs.
func WithSessionID(ctx context.Context, id domain.SessionID) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFromContext returns the session id stored by WithSessionID, if any.
func SessionIDFromContext(ctx context.Context) domain.SessionID {
	id, _ := ctx.Value(sessionKey{}).(domain.SessionID)
	return id
}

// stage holds what every capability-backed node shares.
type stage struct {
	llm     domain.LLMClient
	timeout time.Duration
}

// callContext bounds a single capability call.
func (s stage) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func conversationContext(ctx context.Context, purpose string, history []domain.Message) domain.ConversationContext {
	return domain.ConversationContext{
		SessionID: SessionIDFromContext(ctx),
		Purpose:   purpose,
		History:   history,
	}
}
