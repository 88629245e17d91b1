package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// Stage purposes the mock recognizes.
const (
	purposeExtract  = "extract"
	purposeClarify  = "clarify"
	purposeDiagram  = "diagram"
	purposeDocument = "document"
)

var gameWords = []string{"game", "play", "quest", "игр"}

// MockLLM is a deterministic offline stand-in for a real model. It walks a
// conversation through the whole interview: the first user message names the
// product, the second one is taken as its goal.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, prompt string, convCtx domain.ConversationContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewCapabilityError("mock generate", err)
	}

	switch convCtx.Purpose {
	case purposeClarify:
		return m.question(convCtx), nil
	case purposeDiagram:
		return mockDiagram, nil
	case purposeDocument:
		return mockReport, nil
	default:
		texts := userTexts(convCtx.History)
		if len(texts) == 0 {
			return "Tell me about the product you have in mind.", nil
		}
		return fmt.Sprintf("You said %q. Tell me a bit more about it.", texts[len(texts)-1]), nil
	}
}

func (m *MockLLM) GenerateStructured(ctx context.Context, prompt string, convCtx domain.ConversationContext, schema domain.Schema) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewCapabilityError("mock generate", err)
	}

	raw, err := json.Marshal(m.requirements(convCtx))
	if err != nil {
		return "", domain.NewCapabilityError("mock generate", err)
	}
	return string(raw), nil
}

func (m *MockLLM) question(convCtx domain.ConversationContext) string {
	if len(userTexts(convCtx.History)) < 2 {
		return "What is the main business purpose of the product?"
	}
	return "Who are the target users, and how will the product make money?"
}

func (m *MockLLM) requirements(convCtx domain.ConversationContext) domain.RequirementsRecord {
	texts := userTexts(convCtx.History)
	all := strings.ToLower(strings.Join(texts, " "))

	rec := domain.NewRequirementsRecord()
	rec.SuggestedModules = []string{"Administration panel", "Logging", "Analytics"}
	rec.Recommendations = []string{
		"Specify the expected load (RPS)",
		"Who will administer the system?",
		"Do you need integration with external payment providers?",
	}

	if containsAny(all, gameWords) {
		rec.ProjectName = "Game"
		rec.Scope = []string{"Gamification", "Player profile", "Rewards shop", "Leaderboard"}
	} else if len(texts) > 0 {
		rec.ProjectName = titleFrom(texts[0])
		rec.Scope = []string{"Core functionality", "User management", "Notifications"}
	}

	if len(texts) < 2 {
		rec.MissingInfo = []string{"Business goal", "Target users"}
		return rec
	}

	rec.Goal = texts[1]
	rec.Stakeholders = []string{"End user", "Administrator", "Business owner"}
	for _, area := range rec.Scope {
		rec.UserStories = append(rec.UserStories, domain.UserStory{
			Role:   "user",
			Action: "use " + strings.ToLower(area),
			Value:  rec.Goal,
		})
	}
	if len(texts) < 3 {
		rec.MissingInfo = []string{"Target users", "Monetization model"}
	}
	return rec
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// titleFrom keeps the first few words of a message as a project name.
func titleFrom(text string) string {
	words := strings.Fields(text)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

const mockDiagram = "```mermaid\n" + `graph LR
    subgraph Client
        n_app["Mobile App"]
    end
    subgraph Gateway
        n_gw["API Gateway"]
    end
    subgraph Core
        n_api["Core Service"]
        n_db[("PostgreSQL")]
    end
    subgraph External
        n_esb["ESB"]
    end
    n_app --> n_gw
    n_gw --> n_api
    n_api --> n_db
    n_api --> n_esb
    classDef client fill:#e3f2fd,stroke:#1565c0
    classDef core fill:#e8f5e9,stroke:#2e7d32
    classDef external fill:#fff3e0,stroke:#ef6c00
    class n_app client
    class n_gw,n_api,n_db core
    class n_esb external` + "\n```"

const mockReport = "```html\n" + `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; }
h2 { color: #004d40; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 8px; }
</style>
</head>
<body>
<h1>Business Requirements Document</h1>
<h2>1. Introduction</h2>
<p>This document describes the business requirements gathered during the interview.</p>
<h2>2. Architecture</h2>
<p>Clients reach the core service through the API gateway; integrations go through the ESB.</p>
<h2>3. Functional requirements</h2>
<ul><li>Core functionality</li><li>Administration panel</li><li>Logging</li><li>Analytics</li></ul>
<h2>4. User stories</h2>
<table>
<tr><th>Role</th><th>Action</th><th>Value</th></tr>
<tr><td>User</td><td>use the product</td><td>reach the business goal</td></tr>
</table>
<h2>5. Non-functional requirements</h2>
<p>Security by design, SLA 99.9%, horizontal scaling for peak load.</p>
<h2>6. Risks</h2>
<p>Integration delays with external providers.</p>
</body>
</html>` + "\n```"
