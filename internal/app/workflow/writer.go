package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/PabloGalante/analyst-agent/internal/app/tools"
	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// DefaultClosingMessage is appended once the report is ready.
const DefaultClosingMessage = "Documentation is ready."

// StatusUnavailable is stored when the preparation tool itself fails.
const StatusUnavailable = "unavailable"

// Writer produces the HTML report, asks the preparation tool for a readiness
// status and closes the turn with a fixed message.
type Writer struct {
	stage
	kb       KnowledgeBase
	preparer tools.Tool
	closing  string
}

// NewWriter builds the document stage. preparer may be nil, in which case no
// readiness status is recorded.
func NewWriter(llm domain.LLMClient, kb KnowledgeBase, preparer tools.Tool, closing string, timeout time.Duration) (*Writer, error) {
	if llm == nil {
		return nil, errors.New("writer: nil llm client")
	}
	if closing == "" {
		closing = DefaultClosingMessage
	}
	return &Writer{
		stage:    stage{llm: llm, timeout: timeout},
		kb:       kb,
		preparer: preparer,
		closing:  closing,
	}, nil
}

func (a *Writer) Name() string { return NodeDocument }

func (a *Writer) Run(ctx context.Context, st domain.SessionState) (domain.SessionState, error) {
	log := observability.LoggerFromContext(ctx).With("stage", NodeDocument, "session_id", SessionIDFromContext(ctx))

	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	raw, err := a.llm.GenerateReply(callCtx, reportPrompt(a.kb, st.Requirements, st.DiagramText), conversationContext(ctx, NodeDocument, nil))
	if err != nil {
		return st, domain.NewCapabilityError(NodeDocument, err)
	}

	report := StripFences(raw)
	if report == "" {
		return st, domain.NewCapabilityError(NodeDocument, errors.New("empty report"))
	}

	st.ReportText = report
	st.Status = a.prepare(ctx, st.Requirements.ProjectName, report)
	st.Append(domain.RoleAssistant, a.closing)

	log.Info("report generated", "chars", len(report), "status", st.Status["status"])
	return st, nil
}

// prepare never fails the stage: a tool error becomes an "unavailable" status.
func (a *Writer) prepare(ctx context.Context, title, report string) domain.ReadinessStatus {
	if a.preparer == nil {
		return nil
	}

	tctx := tools.ToolContext{
		SessionID: string(SessionIDFromContext(ctx)),
		RequestID: observability.RequestIDFromContext(ctx),
	}
	out, err := a.preparer.Call(ctx, tctx, map[string]any{
		"report":       report,
		"project_name": title,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("report preparation failed",
			"tool", a.preparer.Name(),
			"error", err,
		)
		return domain.ReadinessStatus{
			"status": StatusUnavailable,
			"error":  err.Error(),
		}
	}
	return domain.ReadinessStatus(out)
}
