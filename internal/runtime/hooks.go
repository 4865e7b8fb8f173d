package runtime

import (
	"context"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
)

func (it *Interpreter) emitNode(ctx context.Context, typ domain.EventType, s *domain.Session, node *domain.Node, outcome string) {
	var hook func(context.Context, *domain.NodeEvent)
	if typ == domain.EventNodeEnter {
		hook = it.hooks.OnNodeEnter
	} else {
		hook = it.hooks.OnNodeLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: it.now(), Type: typ, SessionKey: s.Key},
		FlowID:    s.FlowID,
		NodeID:    node.ID,
		NodeKind:  node.Kind,
		Outcome:   outcome,
	})
}

func (it *Interpreter) emitStep(ctx context.Context, s *domain.Session, res *StepResult, start time.Time, err error) {
	if it.hooks.OnStep == nil {
		return
	}
	it.hooks.OnStep(ctx, &domain.StepEvent{
		EventBase:   domain.EventBase{Timestamp: it.now(), Type: domain.EventStep, SessionKey: s.Key},
		FlowID:      s.FlowID,
		NodeID:      s.NodeID,
		Transitions: res.Transitions,
		Halted:      res.Halted,
		Duration:    it.now().Sub(start),
		Err:         err,
	})
}
