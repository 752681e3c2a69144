package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/civicchat/orchestra/pkg/domain"
)

// visitor observes every completed agent with its update and the merged state.
// Returning false stops the traversal.
type visitor func(id domain.AgentID, update domain.Update, state domain.WorkflowState) bool

// walk is the traversal shared by Invoke and Stream.
func (e *Engine) walk(ctx context.Context, g *domain.Graph, state domain.WorkflowState, cfg domain.RunConfig, visit visitor) (domain.WorkflowState, error) {
	if g == nil {
		return state, fmt.Errorf("%w: nil graph", domain.ErrInvalidGraph)
	}

	current := g.Entry()
	for steps := 0; current != domain.End; steps++ {
		if err := ctx.Err(); err != nil {
			e.logger.Debug("Run cancelled", "run_id", cfg.RunID, "agent", current, "error", err)
			return state, err
		}
		if steps >= e.maxSteps {
			e.logger.Warn("Run exceeded step budget", "run_id", cfg.RunID, "max_steps", e.maxSteps, "agent", current)
			return state.Merge(domain.ErrorUpdate(domain.ErrMaxSteps.Error())), nil
		}

		agent, ok := g.Agent(current)
		if !ok {
			return state, &NodeError{AgentID: current, Cause: domain.ErrUnknownAgent}
		}

		update := e.execute(ctx, agent, state, cfg)
		state = state.Merge(update)
		if !visit(current, update, state) {
			return state, nil
		}

		next, err := e.resolve(ctx, g, current, state, cfg)
		if err != nil {
			e.logger.Error("Routing failed", "run_id", cfg.RunID, "agent", current, "error", err)
			return state.Merge(domain.ErrorUpdate(err.Error())), nil
		}
		current = next
	}

	if !state.HasOutput() && state.Error == nil {
		state = state.Merge(domain.ErrorUpdate(domain.ErrNoOutput.Error()))
	}
	return state, nil
}

// execute runs one agent behind the wrapper: panics and errors never escape, they
// become an error update combined with the agent's fallback output.
func (e *Engine) execute(ctx context.Context, agent domain.Agent, state domain.WorkflowState, cfg domain.RunConfig) domain.Update {
	id := agent.ID()
	start := time.Now()
	log := e.logger.With("run_id", cfg.RunID, "agent", id)

	log.Info("Agent started", "started_at", start)
	e.emitNodeEnter(ctx, cfg, id)

	nodeCtx := ctx
	if e.nodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, e.nodeTimeout)
		defer cancel()
	}

	update, err := safeExecute(nodeCtx, agent, state, cfg)
	duration := time.Since(start)
	if err != nil {
		log.Error("Agent failed", "duration", duration, "error", err)
		update = e.failure(agent, state, err)
	} else {
		log.Info("Agent completed", "duration", duration)
	}

	e.emitNodeLeave(ctx, cfg, id, duration, err)
	return update
}

func safeExecute(ctx context.Context, agent domain.Agent, state domain.WorkflowState, cfg domain.RunConfig) (u domain.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return agent.Execute(ctx, state, cfg)
}

// failure builds the update recorded for a failed agent.
func (e *Engine) failure(agent domain.Agent, state domain.WorkflowState, cause error) domain.Update {
	msg := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = fmt.Sprintf("%s timed out", agent.ID())
	}
	update := domain.ErrorUpdate(msg)

	fp, ok := agent.(domain.FallbackProvider)
	if !ok {
		return update
	}
	fallback, err := safeFallback(fp, state, cause)
	if err != nil {
		e.logger.Error("Fallback failed", "agent", agent.ID(), "error", err)
		return update
	}
	return domain.Combine(fallback, update)
}

func safeFallback(fp domain.FallbackProvider, state domain.WorkflowState, cause error) (u domain.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fp.Fallback(state, cause), nil
}

// resolve picks the node following from. Conditional edges are evaluated on the
// merged state. A selector key with no route falls back to the general agent when
// the edge can reach it.
func (e *Engine) resolve(ctx context.Context, g *domain.Graph, from domain.AgentID, state domain.WorkflowState, cfg domain.RunConfig) (domain.AgentID, error) {
	edge, ok := g.Edges[from]
	if !ok {
		return "", &NodeError{AgentID: from, Cause: errors.New("no outgoing edge")}
	}

	if !edge.Conditional() {
		e.emitRoute(ctx, cfg, from, "", edge.To)
		return edge.To, nil
	}

	key := edge.Selector(state)
	to, ok := edge.Routes[key]
	if !ok {
		if !slices.Contains(edge.Targets(), domain.General) {
			return "", &NodeError{AgentID: from, Cause: fmt.Errorf("no route for key %q", key)}
		}
		e.logger.Warn("Unknown route key, defaulting to general", "run_id", cfg.RunID, "agent", from, "key", key)
		to = domain.General
	}
	e.emitRoute(ctx, cfg, from, key, to)
	return to, nil
}
