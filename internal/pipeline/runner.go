package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samsaffron/tuibridge/internal/classify"
)

// Handler performs one Action's side effect against the current observation.
// Handlers are supplied by the caller (the supervisor) and never touch the
// runner's internal state.
type Handler func(ctx context.Context, ev classify.ScreenEvent) error

// Handlers maps every closed-set action to its implementation. A Runner
// started without an entry for an action the table can emit will log and
// skip it rather than panic, so a handler set may be partial in tests.
type Handlers map[Action]Handler

// Runner drives one session's phase forward one observation at a time,
// applying the one-shot guards spec §5 calls out: a tool request's keyboard
// prompt is sent once per request, and an auth warning is sent once per
// dormant-auth episode.
type Runner struct {
	phase Phase

	toolRequestPending bool
	authWarningSent    bool

	log *slog.Logger
}

// New creates a Runner starting in DORMANT.
func New(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{phase: PhaseDormant, log: log}
}

// Phase returns the runner's current phase.
func (r *Runner) Phase() Phase {
	return r.phase
}

// Step resolves the transition for the current phase and observed view,
// runs its actions in order through handlers (each isolated: a handler
// error is logged and does not stop the remaining actions or block the
// phase advance), and unconditionally advances to the resolved next phase.
func (r *Runner) Step(ctx context.Context, ev classify.ScreenEvent, handlers Handlers) {
	next, actions := Lookup(r.phase, ev.View)

	for _, action := range actions {
		if action == ActionSendKeyboard && r.toolRequestPending {
			continue
		}
		if action == ActionSendAuthWarning && r.authWarningSent {
			continue
		}
		r.runAction(ctx, action, ev, handlers)
		switch action {
		case ActionSendKeyboard:
			r.toolRequestPending = true
		case ActionSendAuthWarning:
			r.authWarningSent = true
		}
	}

	if ev.View != classify.ViewToolRequest {
		r.toolRequestPending = false
	}
	if ev.View != classify.ViewAuthRequired {
		r.authWarningSent = false
	}

	r.phase = next
}

func (r *Runner) runAction(ctx context.Context, action Action, ev classify.ScreenEvent, handlers Handlers) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("pipeline action panicked", "action", action, "recover", fmt.Sprint(rec))
		}
	}()

	h, ok := handlers[action]
	if !ok {
		r.log.Warn("no handler registered for action", "action", action)
		return
	}
	if err := h(ctx, ev); err != nil {
		r.log.Error("pipeline action failed", "action", action, "error", err)
	}
}
