package agents_test

import (
	"testing"

	"github.com/civicchat/orchestra/pkg/agents"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrompts_RenderEveryAgent(t *testing.T) {
	p := agents.DefaultPrompts()
	for _, id := range append(domain.RoutableAgents(), domain.Supervisor) {
		system, user, err := p.Render(id, agents.PromptData{
			Question: "What changes?",
			Language: "en",
			Agents:   domain.RoutableNames(),
			Context:  map[string]any{"district": "north"},
		})
		require.NoError(t, err, id)
		assert.NotEmpty(t, system, id)
		assert.Contains(t, user, "What changes?", id)
	}
}

func TestPrompts_Fallback(t *testing.T) {
	p := agents.DefaultPrompts()
	assert.Contains(t, p.Fallback(domain.Planner, "fr", "en"), "Nous n'avons pas pu")
	assert.Contains(t, p.Fallback(domain.Planner, "ja", "es"), "No pudimos")
	assert.Empty(t, p.Fallback(domain.Planner, "ja", "ko"))
}

func TestLoadPrompts_Errors(t *testing.T) {
	_, err := agents.LoadPrompts([]byte("agents:\n  translator:\n    system: hi\n"))
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)

	_, err = agents.LoadPrompts([]byte("agents:\n  general:\n    user: '{{.Question}}'\n"))
	assert.Error(t, err, "a system template is required")

	_, err = agents.LoadPrompts([]byte("agents:\n  general:\n    system: '{{.Question'\n"))
	assert.Error(t, err)
}

func TestLoadPrompts_UserDefaultsToQuestion(t *testing.T) {
	p, err := agents.LoadPrompts([]byte("agents:\n  general:\n    system: 'Be brief in {{.Language}}.'\n"))
	require.NoError(t, err)

	system, user, err := p.Render(domain.General, agents.PromptData{Question: "Why?", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Be brief in en.", system)
	assert.Equal(t, "Why?", user)
}
