package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

func TestSessionState_CloneIsDeep(t *testing.T) {
	s := domain.NewSessionState()
	s.Append(domain.RoleUser, "I want a game")
	s.Requirements.Scope = []string{"Gamification"}
	s.Status = domain.ReadinessStatus{"status": "ready"}

	c := s.Clone()
	c.Append(domain.RoleAssistant, "What is the core purpose?")
	c.Requirements.Scope[0] = "changed"
	c.Status["status"] = "changed"

	assert.Len(t, s.Transcript, 1)
	assert.Equal(t, "Gamification", s.Requirements.Scope[0])
	assert.Equal(t, "ready", s.Status["status"])
}

func TestSessionState_LatestUserText(t *testing.T) {
	s := domain.NewSessionState()
	assert.Empty(t, s.LatestUserText())

	s.Append(domain.RoleAssistant, "hello")
	s.Append(domain.RoleUser, "first")
	s.Append(domain.RoleAssistant, "question?")
	s.Append(domain.RoleUser, "second")

	assert.Equal(t, "second", s.LatestUserText())

	msg, ok := s.LastAssistantMessage()
	assert.True(t, ok)
	assert.Equal(t, "question?", msg.Text)
}

func TestSessionState_ResetArtifacts(t *testing.T) {
	s := domain.NewSessionState()
	s.DiagramText = "graph LR"
	s.ReportText = "<h1>BRD</h1>"
	s.Status = domain.ReadinessStatus{"status": "ready"}
	assert.True(t, s.Concluded())

	s.ResetArtifacts()

	assert.False(t, s.Concluded())
	assert.Empty(t, s.DiagramText)
	assert.Nil(t, s.Status)
}
