package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/comanda/pkg/domain"
)

// LogHooks returns hooks writing node and step events to logger at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"session", e.SessionKey, "flow_id", e.FlowID, "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave",
				"session", e.SessionKey, "node_id", e.NodeID, "outcome", e.Outcome)
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step",
				"session", e.SessionKey, "flow_id", e.FlowID, "node_id", e.NodeID,
				"transitions", e.Transitions, "halted", e.Halted, "duration", e.Duration, "err", e.Err)
		},
	}
}

// Combine merges hooks so each event reaches every non-nil callback, in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		h := h
		if h.OnNodeEnter != nil {
			prev := out.OnNodeEnter
			out.OnNodeEnter = func(ctx context.Context, e *domain.NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnNodeEnter(ctx, e)
			}
		}
		if h.OnNodeLeave != nil {
			prev := out.OnNodeLeave
			out.OnNodeLeave = func(ctx context.Context, e *domain.NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnNodeLeave(ctx, e)
			}
		}
		if h.OnStep != nil {
			prev := out.OnStep
			out.OnStep = func(ctx context.Context, e *domain.StepEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnStep(ctx, e)
			}
		}
		if h.OnWarning != nil {
			prev := out.OnWarning
			out.OnWarning = func(ctx context.Context, w domain.Warning) {
				if prev != nil {
					prev(ctx, w)
				}
				h.OnWarning(ctx, w)
			}
		}
		if h.OnSendError != nil {
			prev := out.OnSendError
			out.OnSendError = func(ctx context.Context, to string, err error) {
				if prev != nil {
					prev(ctx, to, err)
				}
				h.OnSendError(ctx, to, err)
			}
		}
	}
	return out
}
