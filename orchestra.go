package orchestra

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/internal/presentation/graph"
	"github.com/civicchat/orchestra/internal/runtime"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLanguage is used when no default language is configured.
const DefaultLanguage = "en"

// Engine is the high-level entry point for the orchestra library.
// It compiles the routed workflow and one single-agent graph per routable agent
// once, and runs them on the internal runtime.
type Engine struct {
	runtime         *runtime.Engine
	workflow        *domain.Graph
	singles         map[domain.AgentID]*domain.Graph
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	maxSteps        int
	nodeTimeout     time.Duration
	defaultLanguage string
}

var _ ports.Workflow = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps caps the agents executed by a single run.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithNodeTimeout bounds every agent execution.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.nodeTimeout = d
	}
}

// WithDefaultLanguage sets the language seeded into new states.
func WithDefaultLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.defaultLanguage = lang
		}
	}
}

// New compiles the graphs for the given agents.
// agents must contain the supervisor and at least one routable agent.
func New(agents map[domain.AgentID]domain.Agent, opts ...Option) (*Engine, error) {
	eng := &Engine{
		singles:         make(map[domain.AgentID]*domain.Graph),
		defaultLanguage: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	wf, err := WorkflowGraph(agents)
	if err != nil {
		return nil, err
	}
	eng.workflow = wf

	for _, id := range domain.RoutableAgents() {
		agent, ok := agents[id]
		if !ok {
			continue
		}
		g, err := SingleAgentGraph(agent)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s graph: %w", id, err)
		}
		eng.singles[id] = g
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithMaxSteps(eng.maxSteps),
		runtime.WithNodeTimeout(eng.nodeTimeout),
	)
	return eng, nil
}

// Graph returns the compiled graph for target.
func (e *Engine) Graph(target domain.AgentID) (*domain.Graph, error) {
	if target == domain.Supervisor {
		return e.workflow, nil
	}
	if g, ok := e.singles[target]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgent, target)
}

// Targets lists every runnable target, the workflow first.
func (e *Engine) Targets() []domain.AgentID {
	out := []domain.AgentID{domain.Supervisor}
	for _, id := range domain.RoutableAgents() {
		if _, ok := e.singles[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// DefaultLanguage returns the language new states are seeded with.
func (e *Engine) DefaultLanguage() string {
	return e.defaultLanguage
}

// NewState seeds a state with the engine's default language.
func (e *Engine) NewState(ctx domain.RequestContext, messages ...domain.Message) domain.WorkflowState {
	return domain.NewState(ctx, e.defaultLanguage, messages...)
}

// Invoke runs target to completion. Agent failures are reported in the returned
// state; the error is reserved for unknown targets and cancellation.
func (e *Engine) Invoke(ctx context.Context, target domain.AgentID, state domain.WorkflowState, cfg domain.RunConfig) (domain.WorkflowState, error) {
	g, err := e.Graph(target)
	if err != nil {
		return state, err
	}
	return e.runtime.Invoke(ctx, g, state, e.runConfig(cfg))
}

// Stream runs target and yields one chunk per completed agent.
// An unknown target yields a single error chunk.
func (e *Engine) Stream(ctx context.Context, target domain.AgentID, state domain.WorkflowState, cfg domain.RunConfig, onDone func(domain.WorkflowState)) iter.Seq[domain.StreamChunk] {
	g, err := e.Graph(target)
	if err != nil {
		return func(yield func(domain.StreamChunk) bool) {
			yield(domain.ErrorChunk(err.Error()))
			if onDone != nil {
				onDone(state)
			}
		}
	}
	return e.runtime.Stream(ctx, g, state, e.runConfig(cfg), onDone)
}

// Describe renders the graph of target as a Mermaid flowchart.
func (e *Engine) Describe(target domain.AgentID) (string, error) {
	g, err := e.Graph(target)
	if err != nil {
		return "", err
	}
	return graph.GenerateMermaid(g, nil), nil
}

func (e *Engine) runConfig(cfg domain.RunConfig) domain.RunConfig {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = e.defaultLanguage
	}
	return cfg
}
