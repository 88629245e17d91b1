package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/analyst-agent/internal/app/tools"
	"github.com/PabloGalante/analyst-agent/internal/domain"
)

type scripted struct {
	text  string
	err   error
	block bool
}

type llmCall struct {
	Prompt string
	Ctx    domain.ConversationContext
	Schema *domain.Schema
}

// fakeLLM replays scripted responses per purpose. The last response for a
// purpose repeats once the script runs out.
type fakeLLM struct {
	mu      sync.Mutex
	scripts map[string][]scripted
	calls   []llmCall
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{scripts: make(map[string][]scripted)}
}

func (f *fakeLLM) on(purpose, text string) *fakeLLM {
	f.scripts[purpose] = append(f.scripts[purpose], scripted{text: text})
	return f
}

func (f *fakeLLM) fail(purpose string, err error) *fakeLLM {
	f.scripts[purpose] = append(f.scripts[purpose], scripted{err: err})
	return f
}

// hang makes calls for purpose wait until their context is done.
func (f *fakeLLM) hang(purpose string) *fakeLLM {
	f.scripts[purpose] = append(f.scripts[purpose], scripted{block: true})
	return f
}

func (f *fakeLLM) respond(ctx context.Context, call llmCall) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	script := f.scripts[call.Ctx.Purpose]
	if len(script) == 0 {
		f.mu.Unlock()
		return "", fmt.Errorf("no scripted response for %q", call.Ctx.Purpose)
	}
	next := script[0]
	if len(script) > 1 {
		f.scripts[call.Ctx.Purpose] = script[1:]
	}
	f.mu.Unlock()

	if next.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return next.text, next.err
}

func (f *fakeLLM) GenerateReply(ctx context.Context, prompt string, convCtx domain.ConversationContext) (string, error) {
	return f.respond(ctx, llmCall{Prompt: prompt, Ctx: convCtx})
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, prompt string, convCtx domain.ConversationContext, schema domain.Schema) (string, error) {
	return f.respond(ctx, llmCall{Prompt: prompt, Ctx: convCtx, Schema: &schema})
}

func (f *fakeLLM) callsFor(purpose string) []llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llmCall
	for _, c := range f.calls {
		if c.Ctx.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubTool struct {
	out   map[string]any
	err   error
	input map[string]any
	tctx  tools.ToolContext
}

func (s *stubTool) Name() string { return "stub" }

func (s *stubTool) Call(_ context.Context, tctx tools.ToolContext, input map[string]any) (map[string]any, error) {
	s.input = input
	s.tctx = tctx
	return s.out, s.err
}

type funcNode struct {
	name string
	fn   func(domain.SessionState) (domain.SessionState, error)
}

func (n funcNode) Name() string { return n.name }

func (n funcNode) Run(_ context.Context, st domain.SessionState) (domain.SessionState, error) {
	return n.fn(st)
}

func appendNode(name string) funcNode {
	return funcNode{name: name, fn: func(st domain.SessionState) (domain.SessionState, error) {
		st.Append(domain.RoleAssistant, name)
		return st, nil
	}}
}

const gameExtraction = `{
  "project_name": "Game",
  "scope": ["Gamification", "Player profile", "Rewards shop", "Leaderboard"],
  "suggested_modules": ["Administration panel", "Logging", "Analytics"],
  "missing_info": ["business goal"],
  "recommendations": ["Specify the expected load (RPS)", "Who will administer the system?", "Do you need a maps integration?"]
}`

const loyaltyExtraction = `{
  "project_name": "Loyalty",
  "goal": "Increase repeat purchases",
  "stakeholders": ["Customer", "Marketing"],
  "scope": ["Points", "Rewards"],
  "suggested_modules": ["Administration panel", "Logging", "Analytics"],
  "user_stories": [{"role": "customer", "action": "earn points", "value": "get discounts"}],
  "recommendations": ["Specify the expected load (RPS)", "Define the points expiry policy", "Who will administer the system?"]
}`

const collapsedDiagram = "```mermaid\ngraph LR subgraph Client n_app[\"App\"] end subgraph Core n_api[\"API\"] end n_app --> n_api\n```"
