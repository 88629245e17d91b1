package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

func stateWithUser(text string) domain.SessionState {
	st := domain.NewSessionState()
	st.Append(domain.RoleUser, text)
	return st
}

func TestExtractor_ReplacesRecord(t *testing.T) {
	llm := newFakeLLM().on(NodeExtract, "Here you go:\n```json\n"+loyaltyExtraction+"\n```")
	ex, err := NewExtractor(llm, DefaultKnowledgeBase(), 0)
	require.NoError(t, err)

	ctx := WithSessionID(context.Background(), "s-1")
	st, err := ex.Run(ctx, stateWithUser("a loyalty program to increase repeat purchases"))
	require.NoError(t, err)

	assert.Equal(t, "Loyalty", st.Requirements.ProjectName)
	assert.Equal(t, "Increase repeat purchases", st.Requirements.Goal)
	require.Len(t, st.Requirements.UserStories, 1)
	assert.Equal(t, "earn points", st.Requirements.UserStories[0].Action)
	assert.NotNil(t, st.Requirements.MissingInfo)

	calls := llm.callsFor(NodeExtract)
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Schema)
	assert.Equal(t, "business_requirements", calls[0].Schema.Name)
	assert.Contains(t, string(calls[0].Schema.JSON), "suggested_modules")
	assert.Equal(t, domain.SessionID("s-1"), calls[0].Ctx.SessionID)
	assert.Len(t, calls[0].Ctx.History, 1)
	assert.Contains(t, calls[0].Prompt, "Administration panel")
	assert.Contains(t, calls[0].Prompt, "3-5")
}

func TestExtractor_PartialOutputIsNormalized(t *testing.T) {
	llm := newFakeLLM().on(NodeExtract, `{"goal": "  Sell tickets  ", "scope": ["Booking"],}`)
	ex, err := NewExtractor(llm, KnowledgeBase{}, 0)
	require.NoError(t, err)

	st, err := ex.Run(context.Background(), stateWithUser("sell tickets"))
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultProjectName, st.Requirements.ProjectName)
	assert.Equal(t, "Sell tickets", st.Requirements.Goal)
	assert.Equal(t, []string{"Booking"}, st.Requirements.Scope)
	assert.Equal(t, []string{}, st.Requirements.Stakeholders)
	assert.Equal(t, []domain.UserStory{}, st.Requirements.UserStories)
}

func TestExtractor_KeepsPreviousRecordOnFailure(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"capability error", newFakeLLM().fail(NodeExtract, errors.New("quota exceeded"))},
		{"not json", newFakeLLM().on(NodeExtract, "Sorry, I cannot help with that.")},
		{"malformed json", newFakeLLM().on(NodeExtract, `{"goal": "x"`+"\n"+`"scope": [}`)},
		{"schema violation", newFakeLLM().on(NodeExtract, `{"goal": 42}`)},
		{"wrong list type", newFakeLLM().on(NodeExtract, `{"scope": "Booking"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := NewExtractor(tt.llm, KnowledgeBase{}, 0)
			require.NoError(t, err)

			in := stateWithUser("tell me more")
			in.Requirements.Goal = "Retention"
			in.Requirements.Scope = []string{"Points"}

			out, err := ex.Run(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, in.Requirements, out.Requirements)
		})
	}
}

func TestClarifier_AsksExactlyOneQuestion(t *testing.T) {
	llm := newFakeLLM().on(NodeClarify, "Nice idea. What is the main purpose of the game? And who will play it?")
	cl, err := NewClarifier(llm, 0)
	require.NoError(t, err)

	st, err := cl.Run(context.Background(), stateWithUser("I want a game"))
	require.NoError(t, err)

	require.Len(t, st.Transcript, 2)
	last := st.Transcript[1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Equal(t, "Nice idea. What is the main purpose of the game?", last.Text)

	calls := llm.callsFor(NodeClarify)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, FocusOpening.describe())
}

func TestClarifier_FocusFollowsGoal(t *testing.T) {
	llm := newFakeLLM().on(NodeClarify, "Who are your customers?")
	cl, err := NewClarifier(llm, 0)
	require.NoError(t, err)

	in := stateWithUser("we want more repeat purchases")
	in.Requirements.Goal = "Increase repeat purchases"

	_, err = cl.Run(context.Background(), in)
	require.NoError(t, err)

	calls := llm.callsFor(NodeClarify)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, FocusAudience.describe())
	assert.Equal(t, FocusAudience, ChooseFocus(in.Requirements))
}

func TestChooseFocus(t *testing.T) {
	scoped := domain.NewRequirementsRecord()
	scoped.Scope = []string{"Points per purchase"}

	withGoal := scoped.Clone()
	withGoal.Goal = "Increase repeat purchases"

	blankGoal := domain.NewRequirementsRecord()
	blankGoal.Goal = "   "

	tests := []struct {
		name string
		req  domain.RequirementsRecord
		want Focus
	}{
		{name: "empty record", req: domain.NewRequirementsRecord(), want: FocusOpening},
		{name: "blank goal only", req: blankGoal, want: FocusOpening},
		{name: "scope without goal", req: scoped, want: FocusPurpose},
		{name: "goal known", req: withGoal, want: FocusAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseFocus(tt.req))
		})
	}
}

func TestClarifier_PartialRecordAsksForPurpose(t *testing.T) {
	llm := newFakeLLM().on(NodeClarify, "What should the points program achieve?")
	cl, err := NewClarifier(llm, 0)
	require.NoError(t, err)

	in := stateWithUser("customers earn points per purchase")
	in.Requirements.Scope = []string{"Points per purchase"}

	_, err = cl.Run(context.Background(), in)
	require.NoError(t, err)

	calls := llm.callsFor(NodeClarify)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, FocusPurpose.describe())
	assert.NotContains(t, calls[0].Prompt, FocusOpening.describe())
}

func TestClarifier_Failures(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"capability error", newFakeLLM().fail(NodeClarify, errors.New("unavailable"))},
		{"empty reply", newFakeLLM().on(NodeClarify, "   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := NewClarifier(tt.llm, 0)
			require.NoError(t, err)

			_, err = cl.Run(context.Background(), stateWithUser("hi"))
			require.Error(t, err)
			assert.True(t, domain.IsCapabilityError(err))
		})
	}
}

func TestSingleQuestion(t *testing.T) {
	assert.Equal(t, "What is it for?", SingleQuestion("  What is it for? Who uses it?  "))
	assert.Equal(t, "Для чего это？", SingleQuestion("Для чего это？ Кто будет пользоваться?"))
	assert.Equal(t, "Tell me more.", SingleQuestion("Tell me more."))
}

func TestSingleQuestion_AtMostOneQuestion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.String().Draw(t, "reply")
		out := SingleQuestion(in)

		if n := strings.Count(out, "?") + strings.Count(out, "？"); n > 1 {
			t.Fatalf("SingleQuestion(%q) = %q has %d question marks", in, out, n)
		}
		if !strings.HasPrefix(strings.TrimSpace(in), out) {
			t.Fatalf("SingleQuestion(%q) = %q is not a prefix", in, out)
		}
	})
}

func TestDiagrammer_StoresSanitizedDiagram(t *testing.T) {
	llm := newFakeLLM().on(NodeDiagram, collapsedDiagram)
	dg, err := NewDiagrammer(llm, 0)
	require.NoError(t, err)

	in := stateWithUser("yes")
	in.Requirements.Goal = "Retention"

	st, err := dg.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, st.DiagramText, "subgraph Client\nn_app[\"App\"]\nend")
	assert.Len(t, st.Transcript, 1)

	calls := llm.callsFor(NodeDiagram)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Retention")
	assert.Contains(t, calls[0].Prompt, "graph LR")
}

func TestDiagrammer_FailurePropagates(t *testing.T) {
	dg, err := NewDiagrammer(newFakeLLM().fail(NodeDiagram, errors.New("timeout")), 0)
	require.NoError(t, err)

	_, err = dg.Run(context.Background(), stateWithUser("yes"))
	assert.True(t, domain.IsCapabilityError(err))

	dg, err = NewDiagrammer(newFakeLLM().on(NodeDiagram, "```mermaid\n```"), 0)
	require.NoError(t, err)

	_, err = dg.Run(context.Background(), stateWithUser("yes"))
	assert.True(t, domain.IsCapabilityError(err))
}

func TestWriter_StoresReportStatusAndClosingMessage(t *testing.T) {
	llm := newFakeLLM().on(NodeDocument, "```html\n<h1>BRD</h1><h2>Introduction</h2>\n```")
	tool := &stubTool{out: map[string]any{"status": "ready", "link": "https://wiki.example.com/Loyalty"}}
	wr, err := NewWriter(llm, DefaultKnowledgeBase(), tool, "", 0)
	require.NoError(t, err)

	in := stateWithUser("yes")
	in.Requirements.ProjectName = "Loyalty"
	in.DiagramText = "graph LR\nA --> B"

	ctx := WithSessionID(context.Background(), "s-9")
	st, err := wr.Run(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "<h1>BRD</h1><h2>Introduction</h2>", st.ReportText)
	assert.Equal(t, "ready", st.Status["status"])
	assert.Equal(t, "Loyalty", tool.input["project_name"])
	assert.Equal(t, st.ReportText, tool.input["report"])
	assert.Equal(t, "s-9", tool.tctx.SessionID)

	require.Len(t, st.Transcript, 2)
	assert.Equal(t, DefaultClosingMessage, st.Transcript[1].Text)
	assert.Equal(t, domain.RoleAssistant, st.Transcript[1].Role)

	calls := llm.callsFor(NodeDocument)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "graph LR\nA --> B")
	assert.Contains(t, calls[0].Prompt, "99.9%")
}

func TestWriter_ToolFailureDoesNotGate(t *testing.T) {
	llm := newFakeLLM().on(NodeDocument, "<h1>BRD</h1>")
	tool := &stubTool{err: errors.New("wiki down")}
	wr, err := NewWriter(llm, KnowledgeBase{}, tool, "Done.", 0)
	require.NoError(t, err)

	st, err := wr.Run(context.Background(), stateWithUser("yes"))
	require.NoError(t, err)

	assert.Equal(t, "<h1>BRD</h1>", st.ReportText)
	assert.Equal(t, StatusUnavailable, st.Status["status"])
	assert.Equal(t, "wiki down", st.Status["error"])
	assert.Equal(t, "Done.", st.Transcript[len(st.Transcript)-1].Text)
}

func TestWriter_WithoutPreparer(t *testing.T) {
	wr, err := NewWriter(newFakeLLM().on(NodeDocument, "<h1>BRD</h1>"), KnowledgeBase{}, nil, "", 0)
	require.NoError(t, err)

	st, err := wr.Run(context.Background(), stateWithUser("yes"))
	require.NoError(t, err)
	assert.Nil(t, st.Status)
	assert.True(t, st.Concluded())
}

func TestWriter_EmptyReport(t *testing.T) {
	wr, err := NewWriter(newFakeLLM().on(NodeDocument, "```html\n```"), KnowledgeBase{}, nil, "", 0)
	require.NoError(t, err)

	_, err = wr.Run(context.Background(), stateWithUser("yes"))
	assert.True(t, domain.IsCapabilityError(err))
}

func TestNewStages_RequireClient(t *testing.T) {
	_, err := NewExtractor(nil, KnowledgeBase{}, 0)
	assert.Error(t, err)
	_, err = NewClarifier(nil, 0)
	assert.Error(t, err)
	_, err = NewDiagrammer(nil, 0)
	assert.Error(t, err)
	_, err = NewWriter(nil, KnowledgeBase{}, nil, "", 0)
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSONObject("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": [1]}`, extractJSONObject(`Sure! {"a": [1,]} Hope that helps.`))
	assert.Equal(t, "", extractJSONObject("no json here"))
}
