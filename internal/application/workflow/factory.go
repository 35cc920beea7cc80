package workflow

import (
	"context"

	"github.com/garyjia/business-trip/internal/domain/entity"
	domainwf "github.com/garyjia/business-trip/internal/domain/workflow"
)

// BuildTripStateMachine creates a state machine positioned at the trip's status.
// Guards read the trip, so the machine must not outlive it.
func BuildTripStateMachine(trip *entity.TripRequest) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// cancelling a submitted request is only possible before anyone acted on it
	untouched := func(ctx context.Context) bool {
		return trip.ManagerApprovalDate == nil && trip.OrganizerSubmissionDate == nil
	}

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	builder.Configure(domainwf.StateReturned).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	builder.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerAssignOrganizer, domainwf.StatePendingOrganization).
		Permit(domainwf.TriggerReturnToEmployee, domainwf.StateReturned).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		PermitIf(domainwf.TriggerCancel, domainwf.StateCancelled, untouched)

	builder.Configure(domainwf.StatePendingOrganization).
		Permit(domainwf.TriggerMarkOrganized, domainwf.StateOrganizationDone).
		Permit(domainwf.TriggerConfirmPlan, domainwf.StateAwaitingTripStart)

	builder.Configure(domainwf.StateOrganizationDone).
		Permit(domainwf.TriggerConfirmPlan, domainwf.StateAwaitingTripStart).
		Permit(domainwf.TriggerUndoPlanConfirmation, domainwf.StatePendingOrganization)

	builder.Configure(domainwf.StateAwaitingTripStart).
		Permit(domainwf.TriggerStartTrip, domainwf.StateInProgress).
		Permit(domainwf.TriggerUndoPlanConfirmation, domainwf.StatePendingOrganization)

	builder.Configure(domainwf.StateInProgress).
		Permit(domainwf.TriggerEndTrip, domainwf.StateCompletedWaitingExpense)

	builder.Configure(domainwf.StateCompletedWaitingExpense).
		Permit(domainwf.TriggerSubmitExpenses, domainwf.StateExpenseSubmitted)

	builder.Configure(domainwf.StateExpenseReturned).
		Permit(domainwf.TriggerSubmitExpenses, domainwf.StateExpenseSubmitted)

	builder.Configure(domainwf.StateExpenseSubmitted).
		Permit(domainwf.TriggerApproveExpenses, domainwf.StateCompleted).
		Permit(domainwf.TriggerReturnExpenses, domainwf.StateExpenseReturned).
		Permit(domainwf.TriggerRecallExpenses, domainwf.StateCompletedWaitingExpense)

	// completed is terminal apart from the administrative undo
	builder.Configure(domainwf.StateCompleted).
		Permit(domainwf.TriggerUndoExpenseApproval, domainwf.StateExpenseSubmitted)

	return builder.Build(trip.Status)
}
