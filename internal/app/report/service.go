package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// ErrNotReady is returned while a session has no report (or no diagram) yet.
var ErrNotReady = errors.New("report not ready")

// Format selects the rendering of a report.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a query value to a Format. Empty means HTML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Document is a rendered report.
type Document struct {
	SessionID   domain.SessionID
	Title       string
	Format      Format
	ContentType string
	Body        string
	Status      domain.ReadinessStatus
}

// Service holds the logic of reading generated artifacts.
type Service struct {
	store     domain.SessionStore
	converter *md.Converter
}

// NewService creates a report service from a SessionStore
func NewService(store domain.SessionStore) *Service {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Service{
		store:     store,
		converter: converter,
	}
}

// Render returns the session's report in the requested format.
func (s *Service) Render(ctx context.Context, id domain.SessionID, format Format) (*Document, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.State.Concluded() {
		return nil, ErrNotReady
	}

	doc := &Document{
		SessionID: id,
		Title:     session.State.Requirements.ProjectName,
		Format:    format,
		Status:    session.State.Status,
	}

	switch format {
	case FormatMarkdown:
		body, err := s.converter.ConvertString(session.State.ReportText)
		if err != nil {
			return nil, fmt.Errorf("convert report to markdown: %w", err)
		}
		doc.Body = body
		doc.ContentType = "text/markdown; charset=utf-8"
	case FormatHTML, "":
		doc.Format = FormatHTML
		doc.Body = session.State.ReportText
		doc.ContentType = "text/html; charset=utf-8"
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}

	observability.LoggerFromContext(ctx).Info("report rendered",
		"session_id", id,
		"format", doc.Format,
		"chars", len(doc.Body),
	)
	return doc, nil
}

// Diagram returns the Mermaid source generated for the session.
func (s *Service) Diagram(ctx context.Context, id domain.SessionID) (string, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	if session.State.DiagramText == "" {
		return "", ErrNotReady
	}
	return session.State.DiagramText, nil
}
