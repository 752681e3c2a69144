package observability

import (
	"context"
	"log/slog"

	"github.com/civicchat/orchestra/pkg/domain"
)

// LoggingHooks audits every agent run and routing decision on logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "agent", e.AgentID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			attrs := []any{"run_id", e.RunID, "agent", e.AgentID, "duration", e.Duration}
			if e.Err != "" {
				attrs = append(attrs, "error", e.Err)
			}
			logger.DebugContext(ctx, "node_leave", attrs...)
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			logger.DebugContext(ctx, "route", "run_id", e.RunID, "from", e.From, "key", e.Key, "to", e.To)
		},
	}
}
