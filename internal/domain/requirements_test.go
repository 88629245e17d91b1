package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

func TestNewRequirementsRecord_Defaults(t *testing.T) {
	r := domain.NewRequirementsRecord()

	assert.Equal(t, domain.DefaultProjectName, r.ProjectName)
	assert.Empty(t, r.Goal)
	assert.NotNil(t, r.Stakeholders)
	assert.NotNil(t, r.Scope)
	assert.NotNil(t, r.SuggestedModules)
	assert.NotNil(t, r.UserStories)
	assert.NotNil(t, r.MissingInfo)
	assert.NotNil(t, r.Recommendations)
	assert.True(t, r.IsEmpty())
}

func TestRequirementsRecord_JSONNeverNull(t *testing.T) {
	raw, err := json.Marshal(domain.NewRequirementsRecord())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{"stakeholders", "scope", "suggested_modules", "user_stories", "missing_info", "recommendations"} {
		v, ok := decoded[key]
		require.True(t, ok, "missing key %s", key)
		assert.Equal(t, []any{}, v, key)
	}
}

func TestRequirementsRecord_NormalizeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maybe := func(label string) []string {
			if rapid.Bool().Draw(t, label+"_nil") {
				return nil
			}
			return rapid.SliceOf(rapid.String()).Draw(t, label)
		}
		r := domain.RequirementsRecord{
			ProjectName:      rapid.SampledFrom([]string{"", "  ", "Cashback"}).Draw(t, "name"),
			Goal:             rapid.String().Draw(t, "goal"),
			Stakeholders:     maybe("stakeholders"),
			Scope:            maybe("scope"),
			SuggestedModules: maybe("modules"),
			MissingInfo:      maybe("missing"),
			Recommendations:  maybe("recommendations"),
		}

		n := r.Normalize()
		if n.ProjectName == "" || n.ProjectName == "  " {
			t.Fatalf("blank project name survived normalization")
		}
		if n.Stakeholders == nil || n.Scope == nil || n.SuggestedModules == nil ||
			n.UserStories == nil || n.MissingInfo == nil || n.Recommendations == nil {
			t.Fatalf("nil list after normalization: %+v", n)
		}
	})
}

func TestRequirementsRecord_CloneIsIndependent(t *testing.T) {
	r := domain.NewRequirementsRecord()
	r.Scope = append(r.Scope, "Leaderboard")
	r.UserStories = append(r.UserStories, domain.UserStory{Role: "player", Action: "see rank", Value: "compete"})

	c := r.Clone()
	c.Scope[0] = "changed"
	c.UserStories[0].Role = "changed"

	assert.Equal(t, "Leaderboard", r.Scope[0])
	assert.Equal(t, "player", r.UserStories[0].Role)
}

func TestRequirementsRecord_IsEmpty(t *testing.T) {
	r := domain.NewRequirementsRecord()
	r.Recommendations = []string{"Specify expected load"}
	assert.True(t, r.IsEmpty(), "recommendations alone do not make a record substantial")

	r.Goal = "increase retention"
	assert.False(t, r.IsEmpty())
	assert.True(t, r.HasGoal())
}
