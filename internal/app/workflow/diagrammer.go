package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// Diagrammer draws the system context diagram for the current requirements.
// There is no fallback: a failed call fails the turn.
type Diagrammer struct {
	stage
}

func NewDiagrammer(llm domain.LLMClient, timeout time.Duration) (*Diagrammer, error) {
	if llm == nil {
		return nil, errors.New("diagrammer: nil llm client")
	}
	return &Diagrammer{stage: stage{llm: llm, timeout: timeout}}, nil
}

func (a *Diagrammer) Name() string { return NodeDiagram }

func (a *Diagrammer) Run(ctx context.Context, st domain.SessionState) (domain.SessionState, error) {
	log := observability.LoggerFromContext(ctx).With("stage", NodeDiagram, "session_id", SessionIDFromContext(ctx))

	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	raw, err := a.llm.GenerateReply(callCtx, diagramPrompt(st.Requirements), conversationContext(ctx, NodeDiagram, nil))
	if err != nil {
		return st, domain.NewCapabilityError(NodeDiagram, err)
	}

	diagram := SanitizeDiagram(raw)
	if diagram == "" {
		return st, domain.NewCapabilityError(NodeDiagram, errors.New("empty diagram"))
	}

	st.DiagramText = diagram
	log.Info("diagram generated", "chars", len(diagram))
	return st, nil
}
