package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Readiness values reported under the "status" key.
const (
	StatusReady      = "ready"
	StatusIncomplete = "incomplete"
)

// PrepareTool validates a finished report and prepares it for publishing:
// it checks the markup parses, counts its structure and computes the page
// link the report would be published under. It never publishes anything.
type PrepareTool struct {
	baseURL string
	now     func() time.Time
}

// NewPrepareTool creates a PrepareTool building links under baseURL.
func NewPrepareTool(baseURL string) *PrepareTool {
	return &PrepareTool{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

func (t *PrepareTool) Name() string {
	return "validate_and_prepare"
}

// Call expects an input with this shape:
//
//	{
//	  "report": "<h1>...</h1>...",
//	  "project_name": "Cashback"
//	}
func (t *PrepareTool) Call(
	ctx context.Context,
	tctx ToolContext,
	input map[string]any,
) (map[string]any, error) {

	report := getString(input, "report")
	if strings.TrimSpace(report) == "" {
		return nil, fmt.Errorf("validate_and_prepare: report is empty")
	}

	title := strings.TrimSpace(getString(input, "project_name"))
	if title == "" {
		title = "Untitled"
	}

	doc, err := html.Parse(strings.NewReader(report))
	if err != nil {
		return nil, fmt.Errorf("validate_and_prepare: parse report: %w", err)
	}

	stats := inspect(doc)

	status := StatusReady
	if stats.headings == 0 || stats.textLen == 0 {
		status = StatusIncomplete
	}

	out := map[string]any{
		"status":     status,
		"title":      title,
		"headings":   stats.headings,
		"tables":     stats.tables,
		"checked_at": t.now().UTC().Format(time.RFC3339),
	}
	if t.baseURL != "" {
		out["link"] = t.baseURL + "/" + url.PathEscape(title)
	}
	if tctx.SessionID != "" {
		out["session_id"] = tctx.SessionID
	}

	return out, nil
}

// --- internal helpers --- //

type reportStats struct {
	headings int
	tables   int
	textLen  int
}

func inspect(root *html.Node) reportStats {
	var st reportStats
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "h1", "h2", "h3":
				st.headings++
			case "table":
				st.tables++
			case "style", "script":
				return
			}
		case html.TextNode:
			st.textLen += len(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return st
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
