package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, "graph LR\nA --> B", StripFences("```mermaid\ngraph LR\nA --> B\n```"))
	assert.Equal(t, "<h1>BRD</h1>", StripFences("  ```html\n<h1>BRD</h1>\n```  "))
	assert.Equal(t, "plain", StripFences("plain"))
}

func TestNormalizeSpaces(t *testing.T) {
	assert.Equal(t, "A --> B C", NormalizeSpaces("A\u00a0-->\u202fB\u2007C"))
}

func TestReflowDiagram_CollapsedSubgraphs(t *testing.T) {
	in := `graph LR subgraph Client n_app["App"] end subgraph Core n_api["API"] end n_app --> n_api`
	want := strings.Join([]string{
		"graph LR",
		"subgraph Client",
		`n_app["App"]`,
		"end",
		"subgraph Core",
		`n_api["API"]`,
		"end",
		"n_app --> n_api",
	}, "\n")

	assert.Equal(t, want, ReflowDiagram(in))
}

func TestReflowDiagram_LabeledSubgraphs(t *testing.T) {
	in := `graph LR subgraph Client ["Client App"] direction TB n_app["App"] end subgraph Core ["Core"] n_api["API"] end n_app --> n_api`
	want := strings.Join([]string{
		"graph LR",
		`subgraph Client ["Client App"]`,
		"direction TB",
		`n_app["App"]`,
		"end",
		`subgraph Core ["Core"]`,
		`n_api["API"]`,
		"end",
		"n_app --> n_api",
	}, "\n")

	assert.Equal(t, want, ReflowDiagram(in))
}

func TestReflowDiagram_EdgeChain(t *testing.T) {
	got := ReflowDiagram("graph TD A --> B B --> C C --> D")
	assert.Equal(t, "graph TD\nA --> B\nB --> C\nC --> D", got)
}

func TestReflowDiagram_Direction(t *testing.T) {
	got := ReflowDiagram(`graph LR subgraph Client direction TB n_app["App"] end`)
	assert.Equal(t, "graph LR\nsubgraph Client\ndirection TB\nn_app[\"App\"]\nend", got)
}

func TestReflowDiagram_ClassStatements(t *testing.T) {
	got := ReflowDiagram(`graph LR n_app["App"] --> n_api["API"] class n_app client`)
	assert.Equal(t, "graph LR\nn_app[\"App\"] --> n_api[\"API\"]\nclass n_app client", got)
}

func TestReflowDiagram_LeavesStructuredInputAlone(t *testing.T) {
	multi := "graph LR\n  A --> B"
	assert.Equal(t, multi, ReflowDiagram(multi))

	separated := "graph LR; A --> B; B --> C"
	assert.Equal(t, separated, ReflowDiagram(separated))
}

func TestSanitizeDiagram(t *testing.T) {
	got := SanitizeDiagram(collapsedDiagram)
	assert.True(t, strings.HasPrefix(got, "graph LR\nsubgraph Client\n"))
	assert.NotContains(t, got, "```")
}

func diagramish() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		tokens := rapid.SliceOfN(rapid.SampledFrom([]string{
			"graph", "LR", "TD", "subgraph", "Client", "Core", "end", "direction", "TB",
			`n_app["App"]`, `n_api["API"]`, "-->", "==>", "---", "A", "B", "class", "classDef",
			"core", "fill:#e8f5e9", " ", "x-y",
			`Client ["Client App"]`, `Core ["Core"]`,
		}), 0, 24).Draw(t, "tokens")
		seps := rapid.SliceOfN(rapid.SampledFrom([]string{" ", "  ", "\t", "   "}), len(tokens), len(tokens)).Draw(t, "seps")

		var b strings.Builder
		for i, tok := range tokens {
			b.WriteString(tok)
			b.WriteString(seps[i])
		}
		return b.String()
	})
}

func TestReflowDiagram_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := diagramish().Draw(t, "diagram")
		once := ReflowDiagram(in)
		if twice := ReflowDiagram(once); twice != once {
			t.Fatalf("not idempotent:\nonce:  %q\ntwice: %q", once, twice)
		}
	})
}

func TestReflowDiagram_OnlyChangesWhitespace(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := diagramish().Draw(t, "diagram")
		out := ReflowDiagram(in)
		assert.Equal(t, strings.Fields(in), strings.Fields(out))
	})
}

func TestReflowDiagram_KeepsLabelsOnTheirLine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		out := ReflowDiagram(diagramish().Draw(t, "diagram"))
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "[") {
				t.Fatalf("label split from its owner: %q", out)
			}
		}
	})
}
