package workflow

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// Focus is the topic of the next clarifying question.
type Focus string

const (
	FocusOpening  Focus = "opening"
	FocusPurpose  Focus = "purpose"
	FocusAudience Focus = "audience"
)

// ChooseFocus opens with what the product is while nothing has been
// captured, asks about its purpose until a goal is known, then about
// monetization and target users.
func ChooseFocus(req domain.RequirementsRecord) Focus {
	switch {
	case req.IsEmpty():
		return FocusOpening
	case req.HasGoal():
		return FocusAudience
	default:
		return FocusPurpose
	}
}

func (f Focus) describe() string {
	switch f {
	case FocusOpening:
		return "nothing has been captured yet; ask what the product is and the core purpose it serves"
	case FocusAudience:
		return "the goal is known; ask about monetization or the target users"
	default:
		return "some details are known but not the goal; ask about the core purpose of the product"
	}
}

// SingleQuestion cuts text after its first question mark so a reply never
// carries more than one question.
func SingleQuestion(text string) string {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, "?？")
	if idx < 0 {
		return text
	}
	_, size := utf8.DecodeRuneInString(text[idx:])
	return strings.TrimSpace(text[:idx+size])
}

// Clarifier appends exactly one clarifying question to the transcript.
type Clarifier struct {
	stage
}

func NewClarifier(llm domain.LLMClient, timeout time.Duration) (*Clarifier, error) {
	if llm == nil {
		return nil, errors.New("clarifier: nil llm client")
	}
	return &Clarifier{stage: stage{llm: llm, timeout: timeout}}, nil
}

func (a *Clarifier) Name() string { return NodeClarify }

func (a *Clarifier) Run(ctx context.Context, st domain.SessionState) (domain.SessionState, error) {
	focus := ChooseFocus(st.Requirements)
	log := observability.LoggerFromContext(ctx).With("stage", NodeClarify, "session_id", SessionIDFromContext(ctx), "focus", focus)

	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	reply, err := a.llm.GenerateReply(callCtx, clarificationPrompt(focus, st.Requirements), conversationContext(ctx, NodeClarify, st.Transcript))
	if err != nil {
		return st, domain.NewCapabilityError(NodeClarify, err)
	}

	question := SingleQuestion(reply)
	if question == "" {
		return st, domain.NewCapabilityError(NodeClarify, errors.New("empty reply"))
	}

	st.Append(domain.RoleAssistant, question)
	log.Info("clarifying question asked")
	return st, nil
}
