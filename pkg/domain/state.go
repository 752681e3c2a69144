package domain

import "maps"

// ConversationHistoryKey is the additionalContext key seeded with prior thread messages.
const ConversationHistoryKey = "conversationHistory"

// RequestContext carries the caller supplied framing of a request.
type RequestContext struct {
	Question          string         `json:"question,omitempty"`
	Language          string         `json:"language,omitempty"`
	AdditionalContext map[string]any `json:"additionalContext,omitempty"`
}

// WorkflowState is the record threaded through every agent of a run.
// Fields are folded with the strategies declared in the schema table (see Schema).
type WorkflowState struct {
	Messages []Message     `json:"messages"`
	Context  RequestContext `json:"context"`

	Summarizer *SummaryOutput    `json:"summarizer,omitempty"`
	Simplifier *SimplifiedOutput `json:"simplifier,omitempty"`
	Impact     *ImpactOutput     `json:"impact,omitempty"`
	Planner    *PlanOutput       `json:"planner,omitempty"`
	General    *GeneralOutput    `json:"general,omitempty"`

	// Next is the routing key written by the supervisor.
	Next AgentID `json:"next,omitempty"`

	LanguageDetected string `json:"languageDetected"`

	// Error is nil when the run is healthy.
	Error *string `json:"error"`
}

// NewState seeds a state for a single request.
// languageDetected starts at the configured default language.
func NewState(ctx RequestContext, defaultLanguage string, messages ...Message) WorkflowState {
	if ctx.AdditionalContext != nil {
		ctx.AdditionalContext = maps.Clone(ctx.AdditionalContext)
	}
	return WorkflowState{
		Messages:         append([]Message(nil), messages...),
		Context:          ctx,
		LanguageDetected: defaultLanguage,
	}
}

// Output returns the output slot of the given agent, or nil when it is empty.
func (s WorkflowState) Output(id AgentID) Output {
	switch id {
	case Summarizer:
		if s.Summarizer != nil {
			return s.Summarizer
		}
	case Simplifier:
		if s.Simplifier != nil {
			return s.Simplifier
		}
	case Impact:
		if s.Impact != nil {
			return s.Impact
		}
	case Planner:
		if s.Planner != nil {
			return s.Planner
		}
	case General:
		if s.General != nil {
			return s.General
		}
	}
	return nil
}

// HasOutput reports whether any output slot is populated.
func (s WorkflowState) HasOutput() bool {
	for _, id := range routable {
		if s.Output(id) != nil {
			return true
		}
	}
	return false
}

// Response returns the text of the first populated output slot, preferring
// the slot of the agent the supervisor routed to.
func (s WorkflowState) Response() string {
	if out := s.Output(s.Next); out != nil {
		return out.Text()
	}
	for _, id := range routable {
		if out := s.Output(id); out != nil {
			return out.Text()
		}
	}
	return ""
}

// ErrorMessage returns the current error or the empty string.
func (s WorkflowState) ErrorMessage() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

// LastUserMessage returns the content of the most recent user message.
func (s WorkflowState) LastUserMessage() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}
