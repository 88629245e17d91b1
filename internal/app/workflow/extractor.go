package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// requirementsPayload is the wire shape the capability must produce. Every
// field is optional; missing lists are normalized to empty ones.
type requirementsPayload struct {
	ProjectName      string             `json:"project_name,omitempty" jsonschema:"short name of the project"`
	Goal             string             `json:"goal,omitempty" jsonschema:"the business goal; empty while the user has not stated it"`
	Stakeholders     []string           `json:"stakeholders,omitempty" jsonschema:"roles involved in or affected by the product"`
	Scope            []string           `json:"scope,omitempty" jsonschema:"functional areas of the product"`
	SuggestedModules []string           `json:"suggested_modules,omitempty" jsonschema:"system modules to build"`
	UserStories      []userStoryPayload `json:"user_stories,omitempty" jsonschema:"user stories"`
	MissingInfo      []string           `json:"missing_info,omitempty" jsonschema:"information still missing"`
	Recommendations  []string           `json:"recommendations,omitempty" jsonschema:"3 to 5 suggestions of what the user should clarify next"`
}

type userStoryPayload struct {
	Role   string `json:"role" jsonschema:"who wants it"`
	Action string `json:"action" jsonschema:"what they want to do"`
	Value  string `json:"value" jsonschema:"why it matters to them"`
}

func (p requirementsPayload) record() domain.RequirementsRecord {
	rec := domain.RequirementsRecord{
		ProjectName:      p.ProjectName,
		Goal:             p.Goal,
		Stakeholders:     p.Stakeholders,
		Scope:            p.Scope,
		SuggestedModules: p.SuggestedModules,
		MissingInfo:      p.MissingInfo,
		Recommendations:  p.Recommendations,
	}
	for _, us := range p.UserStories {
		rec.UserStories = append(rec.UserStories, domain.UserStory{
			Role:   us.Role,
			Action: us.Action,
			Value:  us.Value,
		})
	}
	return rec.Normalize()
}

// Extractor turns the whole transcript into a fresh RequirementsRecord.
// It never fails the turn: on any capability or schema problem the previous
// record is kept.
type Extractor struct {
	stage
	kb       KnowledgeBase
	schema   domain.Schema
	resolved *jsonschema.Resolved
}

// NewExtractor derives the output schema from the payload type.
func NewExtractor(llm domain.LLMClient, kb KnowledgeBase, timeout time.Duration) (*Extractor, error) {
	if llm == nil {
		return nil, errors.New("extractor: nil llm client")
	}

	s, err := jsonschema.For[requirementsPayload](nil)
	if err != nil {
		return nil, fmt.Errorf("extractor: derive schema: %w", err)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("extractor: encode schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("extractor: resolve schema: %w", err)
	}

	return &Extractor{
		stage:    stage{llm: llm, timeout: timeout},
		kb:       kb,
		schema:   domain.Schema{Name: "business_requirements", JSON: raw},
		resolved: resolved,
	}, nil
}

func (a *Extractor) Name() string { return NodeExtract }

func (a *Extractor) Run(ctx context.Context, st domain.SessionState) (domain.SessionState, error) {
	log := observability.LoggerFromContext(ctx).With("stage", NodeExtract, "session_id", SessionIDFromContext(ctx))

	callCtx, cancel := a.callContext(ctx)
	defer cancel()

	out, err := a.llm.GenerateStructured(callCtx, extractionPrompt(a.kb), conversationContext(ctx, NodeExtract, st.Transcript), a.schema)
	if err != nil {
		log.Warn("extraction failed, keeping previous requirements", "error", err)
		observability.RecordExtractionFallback()
		return st, nil
	}

	rec, err := a.decode(out)
	if err != nil {
		log.Warn("extraction output rejected, keeping previous requirements", "error", err)
		observability.RecordExtractionFallback()
		return st, nil
	}

	st.Requirements = rec
	log.Info("requirements extracted",
		"project_name", rec.ProjectName,
		"has_goal", rec.HasGoal(),
		"scope", len(rec.Scope),
		"user_stories", len(rec.UserStories),
	)
	return st, nil
}

func (a *Extractor) decode(out string) (domain.RequirementsRecord, error) {
	body := extractJSONObject(out)
	if body == "" {
		return domain.RequirementsRecord{}, errors.New("no JSON object in output")
	}

	var instance any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return domain.RequirementsRecord{}, fmt.Errorf("parse output: %w", err)
	}
	if err := a.resolved.Validate(instance); err != nil {
		return domain.RequirementsRecord{}, fmt.Errorf("validate output: %w", err)
	}

	var p requirementsPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return domain.RequirementsRecord{}, fmt.Errorf("decode output: %w", err)
	}
	return p.record(), nil
}
