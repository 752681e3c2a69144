package agents

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// specialist holds what every output producing agent shares.
type specialist struct {
	id   domain.AgentID
	gen  ports.TextGenerator
	opts options
}

func newSpecialist(id domain.AgentID, gen ports.TextGenerator, opts []Option) specialist {
	return specialist{id: id, gen: gen, opts: newOptions(opts)}
}

// ID returns the agent id.
func (s *specialist) ID() domain.AgentID {
	return s.id
}

func (s *specialist) language(state domain.WorkflowState) string {
	return s.opts.language(state)
}

func (s *specialist) fallbackText(state domain.WorkflowState) string {
	return s.opts.prompts.Fallback(s.id, s.language(state), s.opts.defaultLanguage)
}

func (s *specialist) promptData(state domain.WorkflowState, question string) PromptData {
	return PromptData{
		Question: question,
		Language: s.language(state),
		History:  historyText(state.Context.AdditionalContext[domain.ConversationHistoryKey]),
		Context:  promptContext(state.Context.AdditionalContext),
		Agents:   domain.RoutableNames(),
	}
}

// generate renders the agent prompts and calls the text generator.
func (s *specialist) generate(ctx context.Context, data PromptData, asJSON bool) (string, error) {
	system, user, err := s.opts.prompts.Render(s.id, data)
	if err != nil {
		return "", err
	}
	resp, err := s.gen.Generate(ctx, ports.CompletionRequest{
		System:      system,
		Messages:    []domain.Message{domain.UserMessage(user)},
		JSON:        asJSON,
		Temperature: s.opts.temperature,
		MaxTokens:   s.opts.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", s.id, err)
	}
	return resp.Content, nil
}

// missingQuestion is the update returned when there is nothing to work on.
// The fallback output keeps the payload shape callers expect.
func missingQuestion(fallback domain.Update) domain.Update {
	fallback.Error = domain.Some(domain.ErrMissingQuestion.Error())
	return fallback
}

// completed finalizes a successful update: the output's text is appended as the
// assistant reply and any previous error is cleared.
func completed(u domain.Update) domain.Update {
	if out := u.Output(); out != nil {
		if text := out.Text(); text != "" {
			u.Messages = []domain.Message{domain.AssistantMessage(text)}
		}
	}
	u.Error = domain.Null[string]()
	return u
}

func promptContext(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := maps.Clone(extra)
	delete(out, domain.ConversationHistoryKey)
	return out
}

// historyText renders prior turns. The history arrives either typed, from the
// thread store, or as decoded JSON from a caller supplied additionalContext.
func historyText(v any) string {
	var lines []string
	switch h := v.(type) {
	case []domain.Message:
		for _, m := range h {
			lines = append(lines, string(m.Role)+": "+m.Content)
		}
	case []any:
		for _, item := range h {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			content, _ := m["content"].(string)
			if content != "" {
				lines = append(lines, role+": "+content)
			}
		}
	}
	return strings.Join(lines, "\n")
}
