// Package mcp exposes the analyst interview as MCP (Model Context Protocol)
// tools, so an AI assistant can drive a requirements session over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/PabloGalante/analyst-agent/internal/app/conversation"
	"github.com/PabloGalante/analyst-agent/internal/app/report"
	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// Server wraps the conversation and report services as MCP tools.
type Server struct {
	server  *gomcp.Server
	svc     *conversation.Service
	reports *report.Service
}

// NewServer creates an MCP server backed by the given services.
func NewServer(svc *conversation.Service, reports *report.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{svc: svc, reports: reports}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "analyst", Version: version},
		nil,
	)
	s.registerTools()

	return s
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server, for in-memory transports.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type startSessionInput struct {
	UserID string `json:"user_id" jsonschema:"identifier of the person being interviewed"`
	Title  string `json:"title,omitempty" jsonschema:"optional session title; defaults to the project name once known"`
}

type startSessionOutput struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting,omitempty"`
}

type sendMessageInput struct {
	SessionID string `json:"session_id" jsonschema:"session returned by start_session"`
	Text      string `json:"text" jsonschema:"the user's message"`
}

type sendMessageOutput struct {
	Reply     string   `json:"reply"`
	Route     string   `json:"route"`
	Path      []string `json:"path,omitempty"`
	Concluded bool     `json:"concluded"`
}

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"session returned by start_session"`
}

type messageOutput struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type sessionOutput struct {
	SessionID    string                    `json:"session_id"`
	Title        string                    `json:"title,omitempty"`
	Messages     []messageOutput           `json:"messages,omitempty"`
	Requirements domain.RequirementsRecord `json:"requirements"`
	HasDiagram   bool                      `json:"has_diagram"`
	HasReport    bool                      `json:"has_report"`
	Status       map[string]any            `json:"status,omitempty"`
}

type getReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session returned by start_session"`
	Format    string `json:"format,omitempty" jsonschema:"html (default) or markdown"`
}

type reportOutput struct {
	SessionID string         `json:"session_id"`
	Title     string         `json:"title"`
	Format    string         `json:"format"`
	Body      string         `json:"body"`
	Diagram   string         `json:"diagram,omitempty"`
	Status    map[string]any `json:"status,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_session",
		Description: "Start a requirements interview. Returns the session id and the analyst's opening message.",
	}, s.handleStartSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "send_message",
		Description: "Send the user's next message. The analyst either asks one clarifying question or, once the goal is known and the user agrees, produces the diagram and the requirements document.",
	}, s.handleSendMessage)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_session",
		Description: "Get the transcript, the extracted requirements and which artifacts exist for a session.",
	}, s.handleGetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reset_session",
		Description: "Drop the generated diagram, document and readiness status so they are produced again on the next agreement.",
	}, s.handleResetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_report",
		Description: "Get the business requirements document as html or markdown, with the architecture diagram.",
	}, s.handleGetReport)
}

// --- Tool handlers ---

func (s *Server) handleStartSession(ctx context.Context, _ *gomcp.CallToolRequest, input startSessionInput) (*gomcp.CallToolResult, startSessionOutput, error) {
	if input.UserID == "" {
		return errorResult("user_id is required"), startSessionOutput{}, nil
	}

	out, err := s.svc.StartSession(ctx, conversation.StartSessionInput{
		UserID: domain.UserID(input.UserID),
		Title:  input.Title,
	})
	if err != nil {
		return toolError(ctx, "starting session", err), startSessionOutput{}, nil
	}

	res := startSessionOutput{SessionID: string(out.Session.ID)}
	if greeting, ok := out.Session.State.LastAssistantMessage(); ok {
		res.Greeting = greeting.Text
	}
	return nil, res, nil
}

func (s *Server) handleSendMessage(ctx context.Context, _ *gomcp.CallToolRequest, input sendMessageInput) (*gomcp.CallToolResult, sendMessageOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), sendMessageOutput{}, nil
	}

	out, err := s.svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: domain.SessionID(input.SessionID),
		Text:      input.Text,
	})
	if err != nil {
		return toolError(ctx, "sending message", err), sendMessageOutput{}, nil
	}

	return nil, sendMessageOutput{
		Reply:     out.Reply.Text,
		Route:     string(out.Route),
		Path:      out.Path,
		Concluded: out.Session.State.Concluded(),
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ *gomcp.CallToolRequest, input sessionInput) (*gomcp.CallToolResult, sessionOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), sessionOutput{}, nil
	}

	session, err := s.svc.GetSession(ctx, domain.SessionID(input.SessionID))
	if err != nil {
		return toolError(ctx, "getting session", err), sessionOutput{}, nil
	}
	return nil, sessionToOutput(session), nil
}

func (s *Server) handleResetSession(ctx context.Context, _ *gomcp.CallToolRequest, input sessionInput) (*gomcp.CallToolResult, sessionOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), sessionOutput{}, nil
	}

	session, err := s.svc.ResetArtifacts(ctx, domain.SessionID(input.SessionID))
	if err != nil {
		return toolError(ctx, "resetting session", err), sessionOutput{}, nil
	}
	return nil, sessionToOutput(session), nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *gomcp.CallToolRequest, input getReportInput) (*gomcp.CallToolResult, reportOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), reportOutput{}, nil
	}

	format, err := report.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err.Error()), reportOutput{}, nil
	}

	id := domain.SessionID(input.SessionID)
	doc, err := s.reports.Render(ctx, id, format)
	if err != nil {
		return toolError(ctx, "rendering report", err), reportOutput{}, nil
	}

	out := reportOutput{
		SessionID: input.SessionID,
		Title:     doc.Title,
		Format:    string(doc.Format),
		Body:      doc.Body,
		Status:    doc.Status,
	}
	if diagram, err := s.reports.Diagram(ctx, id); err == nil {
		out.Diagram = diagram
	}
	return nil, out, nil
}

// --- Helpers ---

func sessionToOutput(session *domain.Session) sessionOutput {
	out := sessionOutput{
		SessionID:    string(session.ID),
		Title:        session.Title,
		Messages:     make([]messageOutput, 0, len(session.State.Transcript)),
		Requirements: session.State.Requirements,
		HasDiagram:   session.State.DiagramText != "",
		HasReport:    session.State.Concluded(),
		Status:       session.State.Status,
	}
	for _, m := range session.State.Transcript {
		out.Messages = append(out.Messages, messageOutput{Role: string(m.Role), Text: m.Text})
	}
	return out
}

// toolError turns a service error into a tool-level error result.
func toolError(ctx context.Context, op string, err error) *gomcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errorResult(fmt.Sprintf("%s: session not found", op))
	case errors.Is(err, report.ErrNotReady):
		return errorResult(fmt.Sprintf("%s: the document has not been generated yet", op))
	case domain.IsCapabilityError(err):
		observability.LoggerFromContext(ctx).Error("mcp tool capability failure", "op", op, "error", err)
		return errorResult(fmt.Sprintf("%s: text generation failed, try again", op))
	default:
		return errorResult(fmt.Sprintf("%s: %s", op, err))
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
