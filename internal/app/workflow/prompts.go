package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// KnowledgeBase is read-only enterprise context injected into prompts.
type KnowledgeBase struct {
	TechStack  string
	Compliance string
}

// DefaultKnowledgeBase describes a typical bank integration landscape.
func DefaultKnowledgeBase() KnowledgeBase {
	return KnowledgeBase{
		TechStack: strings.Join([]string{
			"- Backend: Java 17 (Spring Boot), Go 1.21 (microservices).",
			"- Frontend: React, Mobile (Flutter).",
			"- Integration: ESB (IBM WebSphere), Kafka.",
			"- Databases: Oracle 19c (core), PostgreSQL 15 (satellite services).",
			"- Infrastructure: OpenShift (Kubernetes).",
		}, "\n"),
		Compliance: strings.Join([]string{
			"- GDPR and local data protection law.",
			"- PCI DSS for card data.",
			"- Audit logging of every operation that changes customer data.",
		}, "\n"),
	}
}

func (kb KnowledgeBase) block() string {
	var b strings.Builder
	if kb.TechStack != "" {
		b.WriteString("TECHNOLOGY STACK:\n")
		b.WriteString(kb.TechStack)
		b.WriteString("\n")
	}
	if kb.Compliance != "" {
		b.WriteString("COMPLIANCE:\n")
		b.WriteString(kb.Compliance)
		b.WriteString("\n")
	}
	return b.String()
}

func requirementsJSON(req domain.RequirementsRecord) string {
	raw, err := json.MarshalIndent(req.Normalize(), "", "  ")
	if err != nil {
		// plain struct of strings; unreachable in practice
		return "{}"
	}
	return string(raw)
}

func extractionPrompt(kb KnowledgeBase) string {
	return fmt.Sprintf(`You are a systems architect at a large consultancy. Your job is to turn the user's idea into structured business requirements.

%s
RULES:
1. Expand sparse input. When the user writes briefly, infer the functional areas a real product of that kind needs instead of echoing the words back.
   Input: "I want a game".
   Scope: ["Gamification", "Player profile", "Rewards shop", "Leaderboard"].
2. Write user stories as role, action and value ("As a <role>, I want <action>, so that <value>").
3. Always include "Administration panel", "Logging" and "Analytics" in suggested_modules, whatever the domain.
4. Recommendations are important: give 3-5 concrete suggestions of what the user should clarify next, for example "Specify the expected load (RPS)", "Do you need a maps integration?", "Who will administer the system?".
5. Leave goal empty until the user has actually stated a business goal.
6. Keep values from the earlier conversation unless the user changed them.
7. Write values in the same language as the user.

OUTPUT: one JSON object matching the provided schema and nothing else.`, kb.block())
}

func clarificationPrompt(focus Focus, req domain.RequirementsRecord) string {
	return fmt.Sprintf(`You are a product owner interviewing a customer about their product.

ALGORITHM:
1. If the requirements are empty, ask about the core purpose of the product.
2. Once the purpose is known, ask about monetization or the target users.
3. Never ask more than one question at a time.

CURRENT FOCUS: %s

REQUIREMENTS (JSON):
%s

Reply in the same language as the user: at most one short sentence of context, then exactly one question.`,
		focus.describe(), requirementsJSON(req))
}

func diagramPrompt(req domain.RequirementsRecord) string {
	return fmt.Sprintf(`You are a solution architect. Draw a system context diagram in Mermaid.

REQUIREMENTS (JSON):
%s

RULES:
1. Use "graph LR" (left to right).
2. Declare subgraphs in this order: Client, Gateway, Core, External.
3. Define these classes and assign every node to one of them:
   classDef client fill:#e3f2fd,stroke:#1565c0
   classDef core fill:#e8f5e9,stroke:#2e7d32
   classDef external fill:#fff3e0,stroke:#ef6c00
4. Put every statement on its own line.
5. Return only the Mermaid source, no explanations.

EXAMPLE:
graph LR
    subgraph Client
        n_app["Mobile App"]
    end
    subgraph Gateway
        n_gw["API Gateway"]
    end
    subgraph Core
        n_api["Core Service"]
    end
    subgraph External
        n_pay["Payment Provider"]
    end
    n_app --> n_gw
    n_gw --> n_api
    n_api --> n_pay
    class n_app client
    class n_gw,n_api core
    class n_pay external`, requirementsJSON(req))
}

func reportPrompt(kb KnowledgeBase, req domain.RequirementsRecord, diagram string) string {
	return fmt.Sprintf(`You are a senior business analyst. Write a detailed business requirements document (BRD) as one self-contained HTML document.

%s
REQUIREMENTS (JSON):
%s

ARCHITECTURE DIAGRAM (Mermaid):
%s

SECTIONS, in this order:
1. Introduction: purpose and business goal.
2. Architecture: the system context and its integration through the enterprise service bus.
3. Functional requirements: one subsection per scope item and suggested module.
4. User stories: an HTML table with the columns Role, Action, Value.
5. Non-functional requirements: security, availability (SLA 99.9%%), expected load.
6. Risks and mitigations.

FORMAT:
- Embed CSS in a <style> element: readable sans-serif body, h2 color #004d40, tables with 1px borders and collapsed cells.
- Return only the HTML, no commentary.
- Write in the same language as the user.`, kb.block(), requirementsJSON(req), diagram)
}
