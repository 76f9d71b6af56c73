package workflow

import "context"

// StateMachine tracks a current state and validates transitions against it
type StateMachine interface {
	State() State

	// CanFire reports whether any transition is registered for trigger
	CanFire(trigger Trigger) bool

	// Fire transitions to the target of the first permitted transition
	Fire(ctx context.Context, trigger Trigger) error

	PermittedTriggers() []Trigger
}
