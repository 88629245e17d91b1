package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/analyst-agent/internal/app/workflow"
	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// DefaultGreeting opens every new session.
const DefaultGreeting = "I'm ready to work. What system are we designing?"

// Engine advances a session state by one user turn.
type Engine interface {
	Step(ctx context.Context, state domain.SessionState, userMessage string) (workflow.Turn, error)
}

type Service struct {
	engine       Engine
	sessionStore domain.SessionStore
	greeting     string
	now          func() time.Time
	locks        *sessionLocks
}

type Option func(*Service)

// WithGreeting replaces the opening message; an empty text disables it.
func WithGreeting(text string) Option {
	return func(s *Service) { s.greeting = text }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(engine Engine, sessionStore domain.SessionStore, opts ...Option) *Service {
	s := &Service{
		engine:       engine,
		sessionStore: sessionStore,
		greeting:     DefaultGreeting,
		now:          time.Now,
		locks:        newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
}

type StartSessionOutput struct {
	Session *domain.Session
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now().UTC()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new session")

	state := domain.NewSessionState()
	if s.greeting != "" {
		state.Append(domain.RoleAssistant, s.greeting)
	}

	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		UserID:    in.UserID,
		Title:     strings.TrimSpace(in.Title),
		CreatedAt: now,
		UpdatedAt: now,
		State:     state,
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{Session: session}, nil
}

// ImportSession stores a session produced elsewhere, e.g. a loaded snapshot.
func (s *Service) ImportSession(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("import session: missing id")
	}
	session.State.Requirements = session.State.Requirements.Normalize()
	if session.State.Transcript == nil {
		session.State.Transcript = []domain.Message{}
	}
	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("import session: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("session imported",
		"session_id", session.ID,
		"messages", len(session.State.Transcript),
	)
	return nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

type SendMessageOutput struct {
	Session *domain.Session
	Reply   domain.Message
	Route   workflow.Route
	Path    []string
}

// SendMessage runs one turn. Turns of the same session never overlap; the
// session is persisted only when the turn succeeds.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", in.SessionID,
		"user_id", in.UserID,
	)

	unlock, err := s.locks.lock(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("wait for session: %w", err)
	}
	defer unlock()

	session, err := s.sessionStore.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	// An empty UserID means the caller already owns the session.
	if in.UserID != "" && in.UserID != session.UserID {
		log.Warn("message from a user who does not own the session")
		return nil, domain.ErrSessionNotFound
	}

	log.Info("sending message", "chars", len(in.Text))

	turn, err := s.engine.Step(workflow.WithSessionID(ctx, session.ID), session.State, in.Text)
	if err != nil {
		log.Error("turn failed", "error", err)
		return nil, err
	}

	session.State = turn.State
	session.UpdatedAt = s.now().UTC()
	if session.Title == "" && turn.State.Requirements.ProjectName != domain.DefaultProjectName {
		session.Title = turn.State.Requirements.ProjectName
	}

	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, fmt.Errorf("update session: %w", err)
	}

	reply, _ := turn.State.LastAssistantMessage()
	log.Info("send message completed", "route", turn.Route)

	return &SendMessageOutput{
		Session: session,
		Reply:   reply,
		Route:   turn.Route,
		Path:    turn.Path,
	}, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	session, err := s.sessionStore.GetSession(ctx, id)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to get session", "session_id", id, "error", err)
		return nil, err
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	sessions, err := s.sessionStore.ListSessionsByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ResetArtifacts drops the diagram, report and readiness status of a session
// so the next agreement produces them again.
func (s *Service) ResetArtifacts(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wait for session: %w", err)
	}
	defer unlock()

	session, err := s.sessionStore.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	session.State.ResetArtifacts()
	session.UpdatedAt = s.now().UTC()

	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("session artifacts reset", "session_id", id)
	return session, nil
}
