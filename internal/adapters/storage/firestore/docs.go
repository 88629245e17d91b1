package firestore

import (
	"time"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID       string                 `firestore:"user_id"`
	Title        string                 `firestore:"title"`
	CreatedAt    time.Time              `firestore:"created_at"`
	UpdatedAt    time.Time              `firestore:"updated_at"`
	MessageCount int                    `firestore:"message_count"`
	Requirements requirementsDoc        `firestore:"requirements"`
	DiagramText  string                 `firestore:"diagram_text"`
	ReportText   string                 `firestore:"report_text"`
	Status       map[string]interface{} `firestore:"status"`
}

type requirementsDoc struct {
	ProjectName      string         `firestore:"project_name"`
	Goal             string         `firestore:"goal"`
	Stakeholders     []string       `firestore:"stakeholders"`
	Scope            []string       `firestore:"scope"`
	SuggestedModules []string       `firestore:"suggested_modules"`
	UserStories      []userStoryDoc `firestore:"user_stories"`
	MissingInfo      []string       `firestore:"missing_info"`
	Recommendations  []string       `firestore:"recommendations"`
}

type userStoryDoc struct {
	Role   string `firestore:"role"`
	Action string `firestore:"action"`
	Value  string `firestore:"value"`
}

type messageDoc struct {
	Seq       int       `firestore:"seq"`
	Role      string    `firestore:"role"`
	Text      string    `firestore:"text"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toSessionDoc(s *domain.Session) sessionDoc {
	req := s.State.Requirements
	doc := sessionDoc{
		UserID:       string(s.UserID),
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.State.Transcript),
		Requirements: requirementsDoc{
			ProjectName:      req.ProjectName,
			Goal:             req.Goal,
			Stakeholders:     req.Stakeholders,
			Scope:            req.Scope,
			SuggestedModules: req.SuggestedModules,
			MissingInfo:      req.MissingInfo,
			Recommendations:  req.Recommendations,
		},
		DiagramText: s.State.DiagramText,
		ReportText:  s.State.ReportText,
	}
	for _, us := range req.UserStories {
		doc.Requirements.UserStories = append(doc.Requirements.UserStories, userStoryDoc(us))
	}
	if s.State.Status != nil {
		doc.Status = map[string]interface{}(s.State.Status)
	}
	return doc
}

func fromSessionDoc(id domain.SessionID, doc sessionDoc, transcript []domain.Message) *domain.Session {
	r := doc.Requirements
	req := domain.RequirementsRecord{
		ProjectName:      r.ProjectName,
		Goal:             r.Goal,
		Stakeholders:     r.Stakeholders,
		Scope:            r.Scope,
		SuggestedModules: r.SuggestedModules,
		MissingInfo:      r.MissingInfo,
		Recommendations:  r.Recommendations,
	}
	for _, us := range r.UserStories {
		req.UserStories = append(req.UserStories, domain.UserStory(us))
	}

	if transcript == nil {
		transcript = []domain.Message{}
	}

	var st domain.ReadinessStatus
	if len(doc.Status) > 0 {
		st = domain.ReadinessStatus(doc.Status)
	}

	return &domain.Session{
		ID:        id,
		UserID:    domain.UserID(doc.UserID),
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		State: domain.SessionState{
			Transcript:   transcript,
			Requirements: req.Normalize(),
			DiagramText:  doc.DiagramText,
			ReportText:   doc.ReportText,
			Status:       st,
		},
	}
}

func toMessageDoc(seq int, m domain.Message) messageDoc {
	return messageDoc{
		Seq:       seq,
		Role:      string(m.Role),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func fromMessageDoc(doc messageDoc) domain.Message {
	return domain.Message{
		Role:      domain.Role(doc.Role),
		Text:      doc.Text,
		CreatedAt: doc.CreatedAt,
	}
}
