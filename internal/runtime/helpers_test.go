package runtime_test

import (
	"context"
	"sync/atomic"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/dsl"
)

// scripted is an agent whose behaviour is set per test.
type scripted struct {
	id       domain.AgentID
	fn       func(ctx context.Context, s domain.WorkflowState) (domain.Update, error)
	fallback func(s domain.WorkflowState, cause error) domain.Update
	calls    atomic.Int32
}

func (a *scripted) ID() domain.AgentID { return a.id }

func (a *scripted) Execute(ctx context.Context, s domain.WorkflowState, _ domain.RunConfig) (domain.Update, error) {
	a.calls.Add(1)
	return a.fn(ctx, s)
}

// withFallback adds domain.FallbackProvider to a scripted agent.
type withFallback struct {
	*scripted
}

func (a withFallback) Fallback(s domain.WorkflowState, cause error) domain.Update {
	return a.fallback(s, cause)
}

func router(next domain.AgentID) *scripted {
	return &scripted{id: domain.Supervisor, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{Next: next, LanguageDetected: "en", Error: domain.Null[string]()}, nil
	}}
}

func summarizer(summary string) *scripted {
	return &scripted{id: domain.Summarizer, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{
			Summarizer: &domain.SummaryOutput{Summary: summary, KeyPoints: []string{"one"}},
			Messages:   []domain.Message{domain.AssistantMessage(summary)},
			Error:      domain.Null[string](),
		}, nil
	}}
}

func general(answer string) *scripted {
	return &scripted{id: domain.General, fn: func(context.Context, domain.WorkflowState) (domain.Update, error) {
		return domain.Update{General: &domain.GeneralOutput{Answer: answer}, Error: domain.Null[string]()}, nil
	}}
}

// routedGraph wires start -> supervisor -> {summarizer|general} -> end.
func routedGraph(sup domain.Agent, specialists ...domain.Agent) *domain.Graph {
	b := dsl.New("test")
	b.Start(domain.Supervisor)
	node := b.Add(sup).When(func(s domain.WorkflowState) string { return string(s.Next) })
	for _, a := range specialists {
		node.Branch(string(a.ID()), a.ID())
		b.Add(a).Go(domain.End).Final()
	}
	return b.MustBuild()
}

func initialState(text string) domain.WorkflowState {
	return domain.NewState(domain.RequestContext{}, "en", domain.UserMessage(text))
}
