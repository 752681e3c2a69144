package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseState() domain.WorkflowState {
	return domain.NewState(domain.RequestContext{
		Question:          "What does the new zoning law change?",
		AdditionalContext: map[string]any{"district": "north"},
	}, "en", domain.UserMessage("What does the new zoning law change?"))
}

func TestSchema_DeclaresEveryField(t *testing.T) {
	s := domain.Schema()

	assert.Equal(t, domain.AppendList, s[domain.FieldMessages])
	assert.Equal(t, domain.ShallowMerge, s[domain.FieldContext])
	assert.Equal(t, domain.Replace, s[domain.FieldSummarizer])
	assert.Equal(t, domain.Replace, s[domain.FieldNext])
	assert.Equal(t, domain.Replace, s[domain.FieldError])
	assert.Len(t, s, 10)
}

func TestMerge_LeavesUnsetFieldsUntouched(t *testing.T) {
	s := baseState()
	s.Next = domain.Summarizer
	s.Summarizer = &domain.SummaryOutput{Summary: "old"}

	merged := s.Merge(domain.Update{LanguageDetected: "es"})

	assert.Equal(t, "es", merged.LanguageDetected)
	assert.Equal(t, domain.Summarizer, merged.Next)
	assert.Equal(t, "old", merged.Summarizer.Summary)
	assert.Len(t, merged.Messages, 1)
	assert.Equal(t, "en", s.LanguageDetected, "input state must not change")
}

func TestMerge_AppendsMessages(t *testing.T) {
	s := baseState()
	merged := s.Merge(domain.Update{Messages: []domain.Message{domain.AssistantMessage("done")}})

	require.Len(t, merged.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, merged.Messages[1].Role)
	assert.Len(t, s.Messages, 1)
}

func TestMerge_ShallowMergesContext(t *testing.T) {
	s := baseState()
	merged := s.Merge(domain.Update{Context: &domain.RequestContext{
		Language:          "es",
		AdditionalContext: map[string]any{"topic": "housing"},
	}})

	assert.Equal(t, "What does the new zoning law change?", merged.Context.Question)
	assert.Equal(t, "es", merged.Context.Language)
	assert.Equal(t, "north", merged.Context.AdditionalContext["district"])
	assert.Equal(t, "housing", merged.Context.AdditionalContext["topic"])
	assert.NotContains(t, s.Context.AdditionalContext, "topic")
}

func TestMerge_ErrorWritesAlwaysWin(t *testing.T) {
	s := baseState()

	failed := s.Merge(domain.ErrorUpdate("upstream down"))
	require.NotNil(t, failed.Error)
	assert.Equal(t, "upstream down", failed.ErrorMessage())

	untouched := failed.Merge(domain.Update{LanguageDetected: "fr"})
	assert.Equal(t, "upstream down", untouched.ErrorMessage())

	cleared := failed.Merge(domain.Update{Error: domain.Null[string]()})
	assert.Nil(t, cleared.Error)
}

func TestMerge_IsAssociative(t *testing.T) {
	s := baseState()
	u1 := domain.Update{
		Messages:   []domain.Message{domain.AssistantMessage("one")},
		Context:    &domain.RequestContext{Language: "es", AdditionalContext: map[string]any{"a": 1}},
		Next:       domain.Impact,
		Error:      domain.Some("first"),
		Summarizer: &domain.SummaryOutput{Summary: "first"},
	}
	u2 := domain.Update{
		Messages: []domain.Message{domain.AssistantMessage("two"), domain.UserMessage("three")},
		Context:  &domain.RequestContext{AdditionalContext: map[string]any{"a": 2, "b": 3}},
		Error:    domain.Null[string](),
		Impact:   &domain.ImpactOutput{Overview: "second"},
	}

	stepwise := s.Merge(u1).Merge(u2)
	batched := s.Merge(domain.Combine(u1, u2))

	assert.Equal(t, stepwise, batched)
	assert.Len(t, batched.Messages, 4)
	assert.Nil(t, batched.Error)
	assert.Equal(t, domain.Impact, batched.Next)
}

func TestMerge_AppendAssociativityForMessages(t *testing.T) {
	s := baseState()
	u1 := domain.Update{Messages: []domain.Message{domain.AssistantMessage("a")}}
	u2 := domain.Update{Messages: []domain.Message{domain.AssistantMessage("b")}}
	appended := domain.Update{Messages: append(append([]domain.Message{}, u1.Messages...), u2.Messages...)}

	assert.Equal(t, s.Merge(u1).Merge(u2), s.Merge(appended))
}

func TestUpdate_IsBookkeeping(t *testing.T) {
	assert.True(t, domain.Update{}.IsBookkeeping())
	assert.True(t, domain.Update{Messages: []domain.Message{domain.UserMessage("x")}}.IsBookkeeping())
	assert.True(t, domain.Update{Error: domain.Null[string]()}.IsBookkeeping())
	assert.False(t, domain.Update{Error: domain.Some("boom")}.IsBookkeeping())
	assert.False(t, domain.Update{Next: domain.General}.IsBookkeeping())
	assert.False(t, domain.Update{General: &domain.GeneralOutput{Answer: "hi"}}.IsBookkeeping())
}

func TestUpdate_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(domain.Update{
		Next:  domain.Planner,
		Error: domain.Null[string](),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"next":"planner","error":null}`, string(raw))

	raw, err = json.Marshal(domain.Update{LanguageDetected: "es"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"languageDetected":"es"}`, string(raw))
}
