package domain

import (
	"context"
	"encoding/json"
)

// LLMClient defines how the core application interacts with a text-generation capability.
type LLMClient interface {
	// GenerateReply produces free-form text for the prompt given the conversation.
	GenerateReply(ctx context.Context, prompt string, convCtx ConversationContext) (string, error)

	// GenerateStructured produces a JSON document that should conform to schema.
	// Callers still validate the result: adapters only pass the schema along.
	GenerateStructured(ctx context.Context, prompt string, convCtx ConversationContext, schema Schema) (string, error)
}

// ConversationContext gives the LLM the context of the current call.
type ConversationContext struct {
	SessionID SessionID

	// Purpose names the workflow stage issuing the call ("extract", "clarify", ...).
	Purpose string

	History []Message
}

// Schema is the target shape of a schema-constrained generation, as JSON Schema.
type Schema struct {
	Name string
	JSON json.RawMessage
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID UserID, limit int) ([]*Session, error)
}
