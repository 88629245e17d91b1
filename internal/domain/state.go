package domain

import (
	"maps"
	"time"
)

// ReadinessStatus is the opaque descriptor returned by the validate-and-prepare step.
type ReadinessStatus map[string]any

// SessionState is the single record threaded through every workflow step of
// a session. Empty DiagramText/ReportText and a nil Status mean "absent".
//
// It is not synchronized: one owner per in-flight invocation.
type SessionState struct {
	Transcript   []Message          `json:"transcript"`
	Requirements RequirementsRecord `json:"requirements"`
	DiagramText  string             `json:"diagram_text,omitempty"`
	ReportText   string             `json:"report_text,omitempty"`
	Status       ReadinessStatus    `json:"status,omitempty"`
}

// NewSessionState returns an empty state with a default requirements record.
func NewSessionState() SessionState {
	return SessionState{
		Transcript:   []Message{},
		Requirements: NewRequirementsRecord(),
	}
}

// Clone returns a deep copy. Mutating the copy never affects the original.
func (s SessionState) Clone() SessionState {
	out := s
	out.Transcript = append(make([]Message, 0, len(s.Transcript)), s.Transcript...)
	out.Requirements = s.Requirements.Clone()
	if s.Status != nil {
		out.Status = maps.Clone(s.Status)
	}
	return out
}

// Append adds a message to the end of the transcript.
func (s *SessionState) Append(role Role, text string) {
	s.Transcript = append(s.Transcript, Message{
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// LatestUserText returns the text of the most recent USER message, or "".
func (s SessionState) LatestUserText() string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == RoleUser {
			return s.Transcript[i].Text
		}
	}
	return ""
}

// LastAssistantMessage returns the most recent ASSISTANT message, if any.
func (s SessionState) LastAssistantMessage() (Message, bool) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == RoleAssistant {
			return s.Transcript[i], true
		}
	}
	return Message{}, false
}

// Concluded reports whether the long path has produced a report.
func (s SessionState) Concluded() bool {
	return s.ReportText != ""
}

// ResetArtifacts drops the generated diagram, report and status so the long
// path can run again. Transcript and requirements are kept.
func (s *SessionState) ResetArtifacts() {
	s.DiagramText = ""
	s.ReportText = ""
	s.Status = nil
}
