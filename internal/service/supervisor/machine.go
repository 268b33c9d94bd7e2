package supervisor

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/homelab-ops/steward/internal/logger"
)

// Lifecycle states. The terminal state on any successful stop is always
// stateUnregistered.
const (
	stateUnregistered = "unregistered"
	stateStarting     = "starting"
	stateRunning      = "running"
	stateUnloading    = "unloading"
	stateTermWait     = "term-wait"
	stateKillWait     = "kill-wait"
)

// Lifecycle events.
const (
	eventStart   = "start"
	eventStarted = "started"
	eventUnload  = "unload"
	eventTerm    = "term"
	eventKill    = "kill"
	eventStopped = "stopped"
)

// newLifecycle builds the per-operation state machine. Stop phases exit
// early to unregistered whenever the process is observed gone.
func newLifecycle(initial string) *fsm.FSM {
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventStart, Src: []string{stateUnregistered}, Dst: stateStarting},
			{Name: eventStarted, Src: []string{stateStarting}, Dst: stateRunning},
			{Name: eventUnload, Src: []string{stateRunning}, Dst: stateUnloading},
			{Name: eventTerm, Src: []string{stateUnloading}, Dst: stateTermWait},
			{Name: eventKill, Src: []string{stateTermWait}, Dst: stateKillWait},
			{Name: eventStopped, Src: []string{stateUnloading, stateTermWait, stateKillWait}, Dst: stateUnregistered},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				logger.DebugKV(ctx, "Lifecycle transition", "from", e.Src, "to", e.Dst)
			},
		},
	)
}

// transition fires one lifecycle event.
func transition(ctx context.Context, machine *fsm.FSM, event string) error {
	return machine.Event(ctx, event)
}
