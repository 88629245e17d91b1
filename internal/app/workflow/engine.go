package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PabloGalante/analyst-agent/internal/app/tools"
	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// Deps configures an Engine.
type Deps struct {
	// Brain serves extraction and the report. Required.
	Brain domain.LLMClient
	// Fast serves clarification and the diagram. Defaults to Brain.
	Fast domain.LLMClient

	// Preparer is the validate-and-prepare collaborator. Optional.
	Preparer tools.Tool

	Knowledge KnowledgeBase

	// TriggerTokens defaults to DefaultTriggerTokens when it holds no
	// non-blank token.
	TriggerTokens []string

	// ClosingMessage defaults to DefaultClosingMessage.
	ClosingMessage string

	// CallTimeout bounds each capability call; zero means no extra bound.
	CallTimeout time.Duration
}

// Engine advances a session by one user turn. It keeps no per-session state,
// so one Engine serves every session.
type Engine struct {
	graph    *Runnable
	triggers TriggerSet
}

// Turn is the outcome of Step.
type Turn struct {
	State domain.SessionState
	Route Route
	Path  []string
}

// NewEngine wires extract -> route -> clarify | diagram -> document.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Brain == nil {
		return nil, fmt.Errorf("workflow: brain llm client is required")
	}
	fast := deps.Fast
	if fast == nil {
		fast = deps.Brain
	}
	triggers := NewTriggerSet(deps.TriggerTokens)
	if len(triggers.tokens) == 0 {
		triggers = NewTriggerSet(DefaultTriggerTokens)
	}

	extractor, err := NewExtractor(deps.Brain, deps.Knowledge, deps.CallTimeout)
	if err != nil {
		return nil, err
	}
	clarifier, err := NewClarifier(fast, deps.CallTimeout)
	if err != nil {
		return nil, err
	}
	diagrammer, err := NewDiagrammer(fast, deps.CallTimeout)
	if err != nil {
		return nil, err
	}
	writer, err := NewWriter(deps.Brain, deps.Knowledge, deps.Preparer, deps.ClosingMessage, deps.CallTimeout)
	if err != nil {
		return nil, err
	}

	e := &Engine{triggers: triggers}

	graph, err := NewGraph().
		AddNode(extractor).
		AddNode(clarifier).
		AddNode(diagrammer).
		AddNode(writer).
		SetEntryPoint(NodeExtract).
		AddConditionalEdges(NodeExtract, e.route, map[string]string{
			string(RouteClarify):  NodeClarify,
			string(RouteFinalize): NodeDiagram,
		}).
		AddEdge(NodeClarify, End).
		AddEdge(NodeDiagram, NodeDocument).
		AddEdge(NodeDocument, End).
		Compile()
	if err != nil {
		return nil, err
	}
	e.graph = graph
	return e, nil
}

// Triggers returns the agreement tokens in use.
func (e *Engine) Triggers() TriggerSet { return e.triggers }

func (e *Engine) route(st domain.SessionState) string {
	r := Decide(st.Requirements, st.LatestUserText(), e.triggers)
	observability.RecordRoute(string(r))
	return string(r)
}

// Step appends userMessage to a copy of state and runs exactly one path of
// the graph over it. On error the returned Turn carries the input state
// untouched.
func (e *Engine) Step(ctx context.Context, state domain.SessionState, userMessage string) (Turn, error) {
	text := strings.TrimSpace(userMessage)
	if text == "" {
		return Turn{State: state}, domain.ErrEmptyMessage
	}

	log := observability.LoggerFromContext(ctx).With("session_id", SessionIDFromContext(ctx))
	start := time.Now()
	log.Info("turn started", "transcript_len", len(state.Transcript))

	next := state.Clone()
	next.Requirements = next.Requirements.Normalize()
	next.Append(domain.RoleUser, text)

	res, err := e.graph.Invoke(ctx, next)
	if err != nil {
		log.Error("turn failed", "path", res.Path, "error", err)
		return Turn{State: state, Path: res.Path}, err
	}

	route, pathLabel := RouteClarify, "short"
	if slices.Contains(res.Path, NodeDiagram) {
		route, pathLabel = RouteFinalize, "long"
	}
	observability.RecordTurn(pathLabel)
	log.Info("turn finished",
		"route", route,
		"path", res.Path,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return Turn{State: res.State, Route: route, Path: res.Path}, nil
}

// Advance is Step without the bookkeeping.
func (e *Engine) Advance(ctx context.Context, state domain.SessionState, userMessage string) (domain.SessionState, error) {
	turn, err := e.Step(ctx, state, userMessage)
	if err != nil {
		return state, err
	}
	return turn.State, nil
}
