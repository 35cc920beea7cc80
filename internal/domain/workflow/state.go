package workflow

// State is a business trip status
type State string

const (
	StateDraft                   State = "draft"
	StateSubmitted               State = "submitted"
	StateReturned                State = "returned"
	StatePendingOrganization     State = "pending_organization"
	StateOrganizationDone        State = "organization_done"
	StateAwaitingTripStart       State = "awaiting_trip_start"
	StateInProgress              State = "in_progress"
	StateCompletedWaitingExpense State = "completed_waiting_expense"
	StateExpenseSubmitted        State = "expense_submitted"
	StateExpenseReturned         State = "expense_returned"
	StateCompleted               State = "completed"
	StateRejected                State = "rejected"
	StateCancelled               State = "cancelled"
)

// AllStates lists every status in lifecycle order
var AllStates = []State{
	StateDraft,
	StateSubmitted,
	StateReturned,
	StatePendingOrganization,
	StateOrganizationDone,
	StateAwaitingTripStart,
	StateInProgress,
	StateCompletedWaitingExpense,
	StateExpenseSubmitted,
	StateExpenseReturned,
	StateCompleted,
	StateRejected,
	StateCancelled,
}

var validStates = func() map[State]bool {
	m := make(map[State]bool, len(AllStates))
	for _, s := range AllStates {
		m[s] = true
	}
	return m
}()

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateRejected:  true,
	StateCancelled: true,
}

// IsTerminal reports whether the state is a sink (only administrative undo leaves it)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state belongs to the canonical status enum
func (s State) IsValid() bool {
	return validStates[s]
}
