package domain

import "strings"

// DefaultProjectName is used until the user names the project.
const DefaultProjectName = "New project"

// UserStory follows the "As a <role>, I want <action>, so that <value>" form.
type UserStory struct {
	Role   string `json:"role"`
	Action string `json:"action"`
	Value  string `json:"value"`
}

// RequirementsRecord is the structured extraction of the business intent
// behind a conversation. It is replaced wholesale, never patched.
type RequirementsRecord struct {
	ProjectName string `json:"project_name"`

	// Goal is empty while the business goal is still unknown.
	Goal string `json:"goal"`

	Stakeholders     []string    `json:"stakeholders"`
	Scope            []string    `json:"scope"`
	SuggestedModules []string    `json:"suggested_modules"`
	UserStories      []UserStory `json:"user_stories"`

	// MissingInfo lists gaps the analyst has identified.
	MissingInfo []string `json:"missing_info"`

	// Recommendations are follow-up suggestions addressed to the user.
	Recommendations []string `json:"recommendations"`
}

// NewRequirementsRecord returns a record with the placeholder project name
// and every list empty (never nil).
func NewRequirementsRecord() RequirementsRecord {
	return RequirementsRecord{
		ProjectName:      DefaultProjectName,
		Stakeholders:     []string{},
		Scope:            []string{},
		SuggestedModules: []string{},
		UserStories:      []UserStory{},
		MissingInfo:      []string{},
		Recommendations:  []string{},
	}
}

// Normalize restores the record invariants: no nil lists and a non-blank project name.
func (r RequirementsRecord) Normalize() RequirementsRecord {
	if strings.TrimSpace(r.ProjectName) == "" {
		r.ProjectName = DefaultProjectName
	}
	r.Goal = strings.TrimSpace(r.Goal)
	r.Stakeholders = nonNil(r.Stakeholders)
	r.Scope = nonNil(r.Scope)
	r.SuggestedModules = nonNil(r.SuggestedModules)
	r.MissingInfo = nonNil(r.MissingInfo)
	r.Recommendations = nonNil(r.Recommendations)
	if r.UserStories == nil {
		r.UserStories = []UserStory{}
	}
	return r
}

// HasGoal reports whether a business goal has been identified.
func (r RequirementsRecord) HasGoal() bool {
	return strings.TrimSpace(r.Goal) != ""
}

// IsEmpty reports whether nothing substantial has been extracted yet.
func (r RequirementsRecord) IsEmpty() bool {
	return !r.HasGoal() &&
		len(r.Scope) == 0 &&
		len(r.Stakeholders) == 0 &&
		len(r.UserStories) == 0
}

// Clone returns a deep copy of the record.
func (r RequirementsRecord) Clone() RequirementsRecord {
	out := r
	out.Stakeholders = cloneStrings(r.Stakeholders)
	out.Scope = cloneStrings(r.Scope)
	out.SuggestedModules = cloneStrings(r.SuggestedModules)
	out.MissingInfo = cloneStrings(r.MissingInfo)
	out.Recommendations = cloneStrings(r.Recommendations)
	if r.UserStories != nil {
		out.UserStories = append([]UserStory{}, r.UserStories...)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
