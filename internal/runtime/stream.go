package runtime

import (
	"context"
	"iter"

	"github.com/civicchat/orchestra/pkg/domain"
)

// Stream runs the graph like Invoke but yields one chunk per completed agent.
//
// Updates that only append messages or clear the error are not emitted. As soon as
// the merged state carries an error a single error chunk is yielded and the
// traversal stops. Stopping the iteration, or cancelling ctx, stops the traversal
// before the next agent runs. onDone, when set, receives the final merged state.
func (e *Engine) Stream(ctx context.Context, g *domain.Graph, state domain.WorkflowState, cfg domain.RunConfig, onDone func(domain.WorkflowState)) iter.Seq[domain.StreamChunk] {
	return func(yield func(domain.StreamChunk) bool) {
		stopped := false
		failed := false

		final, err := e.walk(ctx, g, state, cfg, func(id domain.AgentID, update domain.Update, merged domain.WorkflowState) bool {
			if merged.Error != nil {
				failed = true
				stopped = !yield(domain.ErrorChunk(*merged.Error))
				return false
			}
			if update.IsBookkeeping() {
				return true
			}

			chunk := domain.StreamChunk{
				Step:  string(id),
				Data:  update,
				Final: g.IsFinal(id),
			}
			if out := update.Output(); chunk.Final && out != nil {
				chunk.Response = out.Text()
			}
			if !yield(chunk) {
				stopped = true
				return false
			}
			return true
		})

		switch {
		case err != nil:
			e.logger.Debug("Stream ended early", "run_id", cfg.RunID, "error", err)
			if ctx.Err() == nil && !stopped && !failed {
				// Programmer errors still terminate the stream with an error chunk.
				yield(domain.ErrorChunk(err.Error()))
			}
		case !stopped && !failed && final.Error != nil:
			// Errors raised by the executor itself: step budget, routing, no output.
			yield(domain.ErrorChunk(*final.Error))
		}

		if onDone != nil {
			onDone(final)
		}
	}
}
