package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/analyst-agent/internal/app/conversation"
	"github.com/PabloGalante/analyst-agent/internal/app/report"
	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

const defaultListLimit = 20

type Server struct {
	svc     *conversation.Service
	reports *report.Service
}

func NewServer(svc *conversation.Service, reports *report.Service) http.Handler {
	s := &Server{svc: svc, reports: reports}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", observability.MetricsHandler())

	// /sessions → create session (POST), list sessions (GET)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}          →  GET: session with transcript and artifacts
	// /sessions/{id}/messages → POST: run one turn
	// /sessions/{id}/reset    → POST: drop generated artifacts
	// /sessions/{id}/report   →  GET: report as html or markdown
	// /sessions/{id}/diagram  →  GET: Mermaid source
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

type sessionResponse struct {
	ID           string                    `json:"id"`
	UserID       string                    `json:"user_id"`
	Title        string                    `json:"title"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
	Messages     []messageResponse         `json:"messages,omitempty"`
	Requirements domain.RequirementsRecord `json:"requirements"`
	HasDiagram   bool                      `json:"has_diagram"`
	HasReport    bool                      `json:"has_report"`
	Status       domain.ReadinessStatus    `json:"status,omitempty"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	Reply   messageResponse `json:"reply"`
	Route   string          `json:"route"`
	Path    []string        `json:"path"`
	Session sessionResponse `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type diagramResponse struct {
	SessionID string `json:"session_id"`
	Diagram   string `json:"diagram"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}[/action]
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.SessionID(parts[0])
	if len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetSession(w, r, id)
	case "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendMessage(w, r, id)
	case "reset":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleReset(w, r, id)
	case "report":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleReport(w, r, id)
	case "diagram":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleDiagram(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(out.Session, true))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.svc.ListSessions(r.Context(), domain.UserID(userID), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, err := s.svc.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session, true))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID,
		UserID:    domain.UserID(req.UserID),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		Reply:   toMessageResponse(out.Reply),
		Route:   string(out.Route),
		Path:    out.Path,
		Session: toSessionResponse(out.Session, false),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, err := s.svc.ResetArtifacts(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session, false))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	doc, err := s.reports.Render(r.Context(), id, format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.Body))
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	diagram, err := s.reports.Diagram(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, diagramResponse{SessionID: string(id), Diagram: diagram})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session, withMessages bool) sessionResponse {
	resp := sessionResponse{
		ID:           string(s.ID),
		UserID:       string(s.UserID),
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Requirements: s.State.Requirements,
		HasDiagram:   s.State.DiagramText != "",
		HasReport:    s.State.Concluded(),
		Status:       s.State.Status,
	}
	if withMessages {
		resp.Messages = make([]messageResponse, 0, len(s.State.Transcript))
		for _, m := range s.State.Transcript {
			resp.Messages = append(resp.Messages, toMessageResponse(m))
		}
	}
	return resp
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		Role:      string(m.Role),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain and service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, domain.ErrEmptyMessage):
		badRequest(w, err.Error())
	case errors.Is(err, report.ErrNotReady):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case domain.IsCapabilityError(err):
		observability.LoggerFromContext(r.Context()).Error("capability failure", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "text generation failed, try again"})
	default:
		internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("internal error", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
