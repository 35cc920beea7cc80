package workflow

// Trigger is a workflow action that moves a trip between states
type Trigger string

const (
	TriggerSubmit               Trigger = "submit"
	TriggerReturnToEmployee     Trigger = "return_to_employee"
	TriggerAssignOrganizer      Trigger = "assign_organizer"
	TriggerMarkOrganized        Trigger = "mark_organized"
	TriggerConfirmPlan          Trigger = "confirm_plan"
	TriggerStartTrip            Trigger = "start_trip"
	TriggerEndTrip              Trigger = "end_trip"
	TriggerSubmitExpenses       Trigger = "submit_expenses"
	TriggerRecallExpenses       Trigger = "recall_expenses"
	TriggerApproveExpenses      Trigger = "approve_expenses"
	TriggerReturnExpenses       Trigger = "return_expenses"
	TriggerReject               Trigger = "reject"
	TriggerCancel               Trigger = "cancel"
	TriggerUndoExpenseApproval  Trigger = "undo_expense_approval"
	TriggerUndoPlanConfirmation Trigger = "undo_plan_confirmation"

	// TriggerForceState marks administrative overrides in history. It is never
	// configured on a state; StateMachine.Force handles it.
	TriggerForceState Trigger = "force_state"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
