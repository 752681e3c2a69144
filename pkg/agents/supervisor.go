package agents

import (
	"context"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// QuestionMissing is the error recorded by the supervisor when there is nothing to route.
const QuestionMissing = "question missing"

// Supervisor resolves the request language and picks the specialist that handles it.
// Routing failures never surface: any classifier error or disallowed value routes
// to the general agent.
type Supervisor struct {
	gen  ports.TextGenerator
	opts options
}

// NewSupervisor creates the routing agent.
func NewSupervisor(gen ports.TextGenerator, opts ...Option) *Supervisor {
	return &Supervisor{gen: gen, opts: newOptions(opts)}
}

// ID returns domain.Supervisor.
func (s *Supervisor) ID() domain.AgentID {
	return domain.Supervisor
}

// Execute resolves the language and writes the next agent to run.
func (s *Supervisor) Execute(ctx context.Context, state domain.WorkflowState, cfg domain.RunConfig) (domain.Update, error) {
	question, ok := EffectiveQuestion(state)
	if !ok {
		return domain.Update{
			Error: domain.Some(QuestionMissing),
			Next:  domain.General,
		}, nil
	}

	lang := s.detectLanguage(ctx, state, question)
	next := s.route(ctx, state, question, lang, cfg)

	return domain.Update{
		Next:             next,
		LanguageDetected: lang,
		Error:            domain.Null[string](),
	}, nil
}

func (s *Supervisor) detectLanguage(ctx context.Context, state domain.WorkflowState, question string) string {
	if normalizeLanguage(state.Context.Language) != "" {
		// An unsupported request language collapses to the default, as it does for specialists.
		return s.opts.language(domain.WorkflowState{Context: state.Context})
	}
	if s.opts.detector == nil {
		return s.opts.defaultLanguage
	}

	detected, err := s.opts.detector.Detect(ctx, question)
	if err != nil {
		s.opts.logger.Warn("Language detection failed, using default", "default", s.opts.defaultLanguage, "error", err)
		return s.opts.defaultLanguage
	}
	if lang, ok := s.opts.supportedLanguage(detected); ok {
		return lang
	}
	return s.opts.defaultLanguage
}

func (s *Supervisor) route(ctx context.Context, state domain.WorkflowState, question, lang string, cfg domain.RunConfig) domain.AgentID {
	system, _, err := s.opts.prompts.Render(domain.Supervisor, PromptData{
		Question: question,
		Language: lang,
		History:  historyText(state.Context.AdditionalContext[domain.ConversationHistoryKey]),
		Agents:   domain.RoutableNames(),
	})
	if err != nil {
		s.opts.logger.Error("Failed to render routing prompt", "run_id", cfg.RunID, "error", err)
		return domain.General
	}

	choice, err := s.gen.Classify(ctx, ports.ClassificationRequest{
		System:      system,
		Input:       question,
		Options:     domain.RoutableNames(),
		Description: "The assistant that should handle the request.",
	})
	if err != nil {
		s.opts.logger.Warn("Routing failed, defaulting to general", "run_id", cfg.RunID, "error", err)
		return domain.General
	}

	id, err := domain.ParseAgentID(choice)
	if err != nil || !id.Routable() {
		s.opts.logger.Warn("Classifier returned a disallowed route, defaulting to general", "run_id", cfg.RunID, "choice", choice)
		return domain.General
	}
	s.opts.logger.Debug("Request routed", "run_id", cfg.RunID, "next", id, "language", lang)
	return id
}
