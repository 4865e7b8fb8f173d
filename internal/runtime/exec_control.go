package runtime

import (
	"strings"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/variables"
	"github.com/google/uuid"
)

func execCondition(x *execution) Result {
	cfg := x.node.Config.(*domain.ConditionConfig)
	if cfg.Expression != "" {
		ok, err := x.it.conditions.Eval(cfg.Expression, x.vars.Snapshot())
		if err != nil {
			x.warn(domain.WarnExpression, "%v; taking the false edge", err)
			return next(domain.HandleFalse)
		}
		return next(branch(ok))
	}
	if cfg.Variable == "" {
		x.warn(domain.WarnMissingVariable, "condition has no variable; taking the false edge")
		return next(domain.HandleFalse)
	}
	value, ok := x.vars.Get(cfg.Variable)
	if !ok {
		return next(domain.HandleFalse)
	}
	return next(branch(matches(value, x.vars.Interpolate(cfg.ExpectedValue), cfg.IgnoreCase)))
}

// matches compares the trimmed string forms of value and expected.
func matches(value any, expected string, ignoreCase bool) bool {
	got := strings.TrimSpace(variables.Stringify(value))
	expected = strings.TrimSpace(expected)
	if ignoreCase {
		return strings.EqualFold(got, expected)
	}
	return got == expected
}

func branch(ok bool) string {
	if ok {
		return domain.HandleTrue
	}
	return domain.HandleFalse
}

func execTimer(x *execution) Result {
	cfg := x.node.Config.(*domain.TimerConfig)
	if !x.resuming {
		if cfg.DurationMs <= 0 {
			return next("")
		}
		x.session.PendingTimer = &domain.PendingTimer{
			Token:      uuid.NewString(),
			NodeID:     x.node.ID,
			DueAt:      x.it.now().Add(time.Duration(cfg.DurationMs) * time.Millisecond),
			ShowTyping: cfg.ShowTypingIndicator,
		}
		return halt()
	}
	pt := x.session.PendingTimer
	if pt != nil && (x.input == nil || x.input.TimerToken != pt.Token) {
		return halt()
	}
	x.session.PendingTimer = nil
	return next("")
}

func execThreadControl(x *execution) Result {
	cfg := x.node.Config.(*domain.ThreadControlConfig)
	switch cfg.Action {
	case domain.ThreadPause:
		x.session.Paused = true
	case domain.ThreadResume:
		x.session.Paused = false
	default:
		x.warn(domain.WarnInvalidConfig, "unknown thread control action %q", cfg.Action)
	}
	x.say(cfg.Ack)
	return next("")
}

func execJump(x *execution) Result {
	cfg := x.node.Config.(*domain.JumpConfig)
	if cfg.TargetFlowID == "" {
		x.warn(domain.WarnUnknownJumpTarget, "jump has no target flow")
		return next("")
	}
	g, err := x.it.graphs.Graph(x.ctx, cfg.TargetFlowID)
	if err != nil {
		x.warn(domain.WarnUnknownJumpTarget, "jump target %q: %v", cfg.TargetFlowID, err)
		return next("")
	}
	return Result{Outcome: Continue, Jump: g}
}

func execHandover(x *execution) Result {
	cfg := x.node.Config.(*domain.HandoverConfig)
	if x.resuming {
		r := next("")
		r.Forward = true
		return r
	}
	msg := cfg.Message
	if msg == "" {
		msg = x.it.texts.Handover
	}
	x.say(msg)
	x.session.Paused = true
	reason := cfg.Reason
	if reason == "" {
		reason = "handover"
	}
	x.result.Attention = append(x.result.Attention, Attention{
		Key:    x.session.Key,
		Reason: x.vars.Interpolate(reason),
	})
	return halt()
}
