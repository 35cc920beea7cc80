package workflow

import (
	"context"
	"errors"
	"testing"
)

type guardKey struct{}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StateSubmitted, false},
		{StateReturned, false},
		{StatePendingOrganization, false},
		{StateAwaitingTripStart, false},
		{StateExpenseSubmitted, false},
		{StateExpenseReturned, false},
		{StateCompleted, true},
		{StateRejected, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"draft", StateDraft, true},
		{"completed", StateCompleted, true},
		{"legacy manager_review", State("manager_review"), false},
		{"legacy cost_estimated", State("cost_estimated"), false},
		{"legacy finance_review", State("finance_review"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAllStates_AreValidAndUnique(t *testing.T) {
	seen := make(map[State]bool)
	for _, s := range AllStates {
		if !s.IsValid() {
			t.Errorf("state %s listed but not valid", s)
		}
		if seen[s] {
			t.Errorf("state %s listed twice", s)
		}
		seen[s] = true
	}
	if len(seen) != 13 {
		t.Errorf("len(AllStates) = %d, want 13", len(seen))
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder()

	first := builder.Configure(StateDraft)
	second := builder.Configure(StateDraft)
	if first != second {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_PanicsOnInvalidStates(t *testing.T) {
	cases := map[string]func(){
		"configure": func() { NewBuilder().Configure(State("manager_review")) },
		"build":     func() { NewBuilder().Build(State("")) },
		"target":    func() { NewBuilder().Configure(StateDraft).Permit(TriggerSubmit, State("x")) },
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%s should panic", name)
				}
			}()
			fn()
		})
	}
}

func TestStateMachine_FirePermitted(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(TriggerSubmit, StateSubmitted)

	machine := builder.Build(StateDraft)

	if err := machine.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateSubmitted {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateSubmitted)
	}
}

func TestStateMachine_FireInvalidTransitionKeepsState(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(TriggerSubmit, StateSubmitted)

	machine := builder.Build(StateCompleted)

	err := machine.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateCompleted {
		t.Errorf("State should remain %v, got %v", StateCompleted, machine.State())
	}
}

func TestStateMachine_GuardFailure(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		PermitIf(TriggerCancel, StateCancelled, func(ctx context.Context) bool { return false })

	machine := builder.Build(StateSubmitted)

	if machine.CanFire(context.Background(), TriggerCancel) {
		t.Error("CanFire() should be false when the guard rejects")
	}

	err := machine.Fire(context.Background(), TriggerCancel)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StateSubmitted {
		t.Errorf("State should remain %v, got %v", StateSubmitted, machine.State())
	}
}

func TestStateMachine_GuardsTriedInOrder(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePendingOrganization).
		PermitIf(TriggerConfirmPlan, StateAwaitingTripStart, func(ctx context.Context) bool {
			return ctx.Value(guardKey{}).(bool)
		}).
		PermitIf(TriggerConfirmPlan, StateOrganizationDone, func(ctx context.Context) bool {
			return !ctx.Value(guardKey{}).(bool)
		})

	m1 := builder.Build(StatePendingOrganization)
	if err := m1.Fire(context.WithValue(context.Background(), guardKey{}, true), TriggerConfirmPlan); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m1.State() != StateAwaitingTripStart {
		t.Errorf("State = %v, want %v", m1.State(), StateAwaitingTripStart)
	}

	m2 := builder.Build(StatePendingOrganization)
	if err := m2.Fire(context.WithValue(context.Background(), guardKey{}, false), TriggerConfirmPlan); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m2.State() != StateOrganizationDone {
		t.Errorf("State = %v, want %v", m2.State(), StateOrganizationDone)
	}
}

func TestStateMachine_BuildIsolatesMachines(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(TriggerSubmit, StateSubmitted)

	m1 := builder.Build(StateDraft)
	m2 := builder.Build(StateDraft)

	if err := m1.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m2.State() != StateDraft {
		t.Errorf("second machine moved to %v", m2.State())
	}

	builder.Configure(StateDraft).Permit(TriggerCancel, StateCancelled)
	if m2.CanFire(context.Background(), TriggerCancel) {
		t.Error("configuration added after Build() leaked into machine")
	}
}

func TestStateMachine_Force(t *testing.T) {
	machine := NewBuilder().Build(StateCompleted)

	if err := machine.Force(StateInProgress); err != nil {
		t.Fatalf("Force() failed: %v", err)
	}
	if machine.State() != StateInProgress {
		t.Errorf("State = %v, want %v", machine.State(), StateInProgress)
	}

	err := machine.Force(State("finance_review"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Force() error = %v, want %v", err, ErrInvalidState)
	}
	if machine.State() != StateInProgress {
		t.Errorf("State changed on invalid Force(): %v", machine.State())
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		Permit(TriggerReturnToEmployee, StateReturned).
		Permit(TriggerAssignOrganizer, StatePendingOrganization).
		PermitIf(TriggerCancel, StateCancelled, func(ctx context.Context) bool { return false }).
		Permit(TriggerReject, StateRejected)

	machine := builder.Build(StateSubmitted)
	got := machine.PermittedTriggers(context.Background())
	want := []Trigger{TriggerReturnToEmployee, TriggerAssignOrganizer, TriggerReject}

	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if triggers := NewBuilder().Build(StateCancelled).PermittedTriggers(context.Background()); len(triggers) != 0 {
		t.Errorf("unconfigured state should have no triggers, got %v", triggers)
	}
}
