package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/pkg/domain"
)

// DefaultMaxSteps bounds the number of agents a single run may execute.
const DefaultMaxSteps = 12

// Engine walks workflow graphs. It holds no per-run state and is safe for
// concurrent use; every run gets its own copy of the workflow state.
type Engine struct {
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	maxSteps    int
	nodeTimeout time.Duration
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMaxSteps caps the agents executed per run. Non-positive values keep the default.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithNodeTimeout bounds every agent execution. Zero disables the limit.
func WithNodeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.nodeTimeout = d
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSteps returns the configured step cap.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// Invoke runs the graph to completion and returns the final merged state.
// Agent failures are recorded in the state, not returned: the error result is
// reserved for invalid graphs and context cancellation.
func (e *Engine) Invoke(ctx context.Context, g *domain.Graph, state domain.WorkflowState, cfg domain.RunConfig) (domain.WorkflowState, error) {
	return e.walk(ctx, g, state, cfg, func(domain.AgentID, domain.Update, domain.WorkflowState) bool {
		return true
	})
}

func (e *Engine) emitNodeEnter(ctx context.Context, cfg domain.RunConfig, id domain.AgentID) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, RunID: cfg.RunID},
		AgentID:   id,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, cfg domain.RunConfig, id domain.AgentID, d time.Duration, err error) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	ev := &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, RunID: cfg.RunID},
		AgentID:   id,
		Duration:  d,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	e.hooks.OnNodeLeave(ctx, ev)
}

func (e *Engine) emitRoute(ctx context.Context, cfg domain.RunConfig, from domain.AgentID, key string, to domain.AgentID) {
	if e.hooks.OnRoute == nil {
		return
	}
	e.hooks.OnRoute(ctx, &domain.RouteEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRoute, RunID: cfg.RunID},
		From:      from,
		Key:       key,
		To:        to,
	})
}
