package workflow

import "context"

// StateMachine tracks the current status of one trip and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether the trigger is configured for the current state
	// and at least one of its guards passes
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire executes the trigger, moving to the target state when allowed
	Fire(ctx context.Context, trigger Trigger) error

	// Force moves to any valid state without consulting the transition table
	Force(state State) error

	// PermittedTriggers returns triggers configured for the current state, in configuration order
	PermittedTriggers(ctx context.Context) []Trigger
}
