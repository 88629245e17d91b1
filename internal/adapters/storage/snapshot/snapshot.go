// Package snapshot saves and loads a whole session as a YAML document, so a
// terminal interview can be stopped and resumed later.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// Version is written to every snapshot.
const Version = 1

type file struct {
	Version   int            `yaml:"version"`
	SessionID string         `yaml:"session_id"`
	UserID    string         `yaml:"user_id,omitempty"`
	Title     string         `yaml:"title,omitempty"`
	CreatedAt time.Time      `yaml:"created_at"`
	UpdatedAt time.Time      `yaml:"updated_at"`
	Messages  []message      `yaml:"messages"`
	Reqs      requirements   `yaml:"requirements"`
	Diagram   string         `yaml:"diagram,omitempty"`
	Report    string         `yaml:"report,omitempty"`
	Status    map[string]any `yaml:"status,omitempty"`
}

type message struct {
	Role string    `yaml:"role"`
	Text string    `yaml:"text"`
	At   time.Time `yaml:"at"`
}

type requirements struct {
	ProjectName      string      `yaml:"project_name"`
	Goal             string      `yaml:"goal,omitempty"`
	Stakeholders     []string    `yaml:"stakeholders,omitempty"`
	Scope            []string    `yaml:"scope,omitempty"`
	SuggestedModules []string    `yaml:"suggested_modules,omitempty"`
	UserStories      []userStory `yaml:"user_stories,omitempty"`
	MissingInfo      []string    `yaml:"missing_info,omitempty"`
	Recommendations  []string    `yaml:"recommendations,omitempty"`
}

type userStory struct {
	Role   string `yaml:"role"`
	Action string `yaml:"action"`
	Value  string `yaml:"value"`
}

// Write encodes session as YAML.
func Write(w io.Writer, session *domain.Session) error {
	if session == nil {
		return errors.New("snapshot: nil session")
	}

	st := session.State
	req := st.Requirements
	f := file{
		Version:   Version,
		SessionID: string(session.ID),
		UserID:    string(session.UserID),
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Reqs: requirements{
			ProjectName:      req.ProjectName,
			Goal:             req.Goal,
			Stakeholders:     req.Stakeholders,
			Scope:            req.Scope,
			SuggestedModules: req.SuggestedModules,
			MissingInfo:      req.MissingInfo,
			Recommendations:  req.Recommendations,
		},
		Diagram: st.DiagramText,
		Report:  st.ReportText,
		Status:  st.Status,
	}
	for _, m := range st.Transcript {
		f.Messages = append(f.Messages, message{Role: string(m.Role), Text: m.Text, At: m.CreatedAt})
	}
	for _, us := range req.UserStories {
		f.Reqs.UserStories = append(f.Reqs.UserStories, userStory(us))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return enc.Close()
}

// Read decodes a snapshot written by Write.
func Read(r io.Reader) (*domain.Session, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", f.Version)
	}
	if f.SessionID == "" {
		return nil, errors.New("snapshot: missing session_id")
	}

	st := domain.SessionState{
		Transcript: []domain.Message{},
		Requirements: domain.RequirementsRecord{
			ProjectName:      f.Reqs.ProjectName,
			Goal:             f.Reqs.Goal,
			Stakeholders:     f.Reqs.Stakeholders,
			Scope:            f.Reqs.Scope,
			SuggestedModules: f.Reqs.SuggestedModules,
			MissingInfo:      f.Reqs.MissingInfo,
			Recommendations:  f.Reqs.Recommendations,
		},
		DiagramText: f.Diagram,
		ReportText:  f.Report,
	}
	for _, m := range f.Messages {
		role := domain.Role(m.Role)
		if role != domain.RoleUser && role != domain.RoleAssistant {
			return nil, fmt.Errorf("snapshot: unknown role %q", m.Role)
		}
		st.Transcript = append(st.Transcript, domain.Message{Role: role, Text: m.Text, CreatedAt: m.At})
	}
	for _, us := range f.Reqs.UserStories {
		st.Requirements.UserStories = append(st.Requirements.UserStories, domain.UserStory(us))
	}
	st.Requirements = st.Requirements.Normalize()
	if len(f.Status) > 0 {
		st.Status = domain.ReadinessStatus(f.Status)
	}

	return &domain.Session{
		ID:        domain.SessionID(f.SessionID),
		UserID:    domain.UserID(f.UserID),
		Title:     f.Title,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		State:     st,
	}, nil
}

// SaveFile writes a snapshot to path.
func SaveFile(path string, session *domain.Session) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := Write(fh, session); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (*domain.Session, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer fh.Close()
	return Read(fh)
}
