package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

func TestGraph_CompileRejectsInvalidGraphs(t *testing.T) {
	always := func(domain.SessionState) string { return "a" }

	tests := []struct {
		name  string
		build func() *Graph
	}{
		{
			name: "no entry point",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).AddEdge("a", End)
			},
		},
		{
			name: "entry is not a node",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).AddEdge("a", End).SetEntryPoint("b")
			},
		},
		{
			name: "unknown edge target",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).AddEdge("a", "missing").SetEntryPoint("a")
			},
		},
		{
			name: "node without transition",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).AddNode(appendNode("b")).AddEdge("a", End).SetEntryPoint("a")
			},
		},
		{
			name: "duplicate node",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).AddNode(appendNode("a")).AddEdge("a", End).SetEntryPoint("a")
			},
		},
		{
			name: "reserved name",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode(End)).AddNode(appendNode("a")).AddEdge("a", End).SetEntryPoint("a")
			},
		},
		{
			name: "edge and branch on the same node",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).
					AddEdge("a", End).
					AddConditionalEdges("a", always, map[string]string{"a": End}).
					SetEntryPoint("a")
			},
		},
		{
			name: "cycle",
			build: func() *Graph {
				return NewGraph().AddNode(appendNode("a")).AddNode(appendNode("b")).
					AddEdge("a", "b").
					AddConditionalEdges("b", always, map[string]string{"a": "a", "done": End}).
					SetEntryPoint("a")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.build().Compile()
			assert.Error(t, err)
			assert.Nil(t, r)
		})
	}
}

func TestGraph_InvokeFollowsBranch(t *testing.T) {
	pick := "right"
	g, err := NewGraph().
		AddNode(appendNode("start")).
		AddNode(appendNode("left")).
		AddNode(appendNode("right")).
		AddNode(appendNode("tail")).
		SetEntryPoint("start").
		AddConditionalEdges("start", func(domain.SessionState) string { return pick }, map[string]string{
			"left":  "left",
			"right": "right",
		}).
		AddEdge("left", End).
		AddEdge("right", "tail").
		AddEdge("tail", End).
		Compile()
	require.NoError(t, err)

	res, err := g.Invoke(context.Background(), domain.NewSessionState())
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "right", "tail"}, res.Path)
	require.Len(t, res.State.Transcript, 3)
	assert.Equal(t, "tail", res.State.Transcript[2].Text)

	pick = "left"
	res, err = g.Invoke(context.Background(), domain.NewSessionState())
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "left"}, res.Path)
}

func TestGraph_InvokeStopsAtFailingNode(t *testing.T) {
	boom := errors.New("boom")
	failing := funcNode{name: "fail", fn: func(st domain.SessionState) (domain.SessionState, error) {
		return st, boom
	}}

	g, err := NewGraph().
		AddNode(appendNode("first")).
		AddNode(failing).
		AddNode(appendNode("never")).
		SetEntryPoint("first").
		AddEdge("first", "fail").
		AddEdge("fail", "never").
		AddEdge("never", End).
		Compile()
	require.NoError(t, err)

	res, err := g.Invoke(context.Background(), domain.NewSessionState())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "fail"}, res.Path)
}

func TestGraph_UnknownBranchKey(t *testing.T) {
	g, err := NewGraph().
		AddNode(appendNode("a")).
		SetEntryPoint("a").
		AddConditionalEdges("a", func(domain.SessionState) string { return "nowhere" }, map[string]string{"x": End}).
		Compile()
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), domain.NewSessionState())
	assert.ErrorContains(t, err, "nowhere")
}

func TestGraph_CanceledContext(t *testing.T) {
	g, err := NewGraph().AddNode(appendNode("a")).SetEntryPoint("a").AddEdge("a", End).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Invoke(ctx, domain.NewSessionState())
	assert.ErrorIs(t, err, context.Canceled)
}
