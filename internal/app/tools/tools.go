package tools

import (
	"context"
)

// ToolContext brings metadata of the call to the tool
type ToolContext struct {
	SessionID string
	RequestID string
}

// Tool represents a collaborator workflow stages can invoke.
// input/output is a generic map so results stay opaque to the caller.
type Tool interface {
	Name() string
	Call(ctx context.Context, tctx ToolContext, input map[string]any) (map[string]any, error)
}
