package event

// Type identifies a trip domain event
type Type string

const (
	TypeTripCreated         Type = "trip.created"
	TypeSubmittedToManager  Type = "trip.submitted"
	TypeReturnedToEmployee  Type = "trip.returned"
	TypeOrganizerAssigned   Type = "trip.organizer_assigned"
	TypePlanConfirmed       Type = "trip.plan_confirmed"
	TypeTripStarted         Type = "trip.started"
	TypeTripEnded           Type = "trip.ended"
	TypeExpensesSubmitted   Type = "trip.expenses_submitted"
	TypeExpensesRecalled    Type = "trip.expenses_recalled"
	TypeExpensesApproved    Type = "trip.expenses_approved"
	TypeExpensesReturned    Type = "trip.expenses_returned"
	TypeTripRejected        Type = "trip.rejected"
	TypeTripCancelled       Type = "trip.cancelled"
	TypeStatusChanged       Type = "trip.status_changed"
	TypeSubmissionProcessed Type = "submission.processed"
)

var validTypes = map[Type]bool{
	TypeTripCreated:         true,
	TypeSubmittedToManager:  true,
	TypeReturnedToEmployee:  true,
	TypeOrganizerAssigned:   true,
	TypePlanConfirmed:       true,
	TypeTripStarted:         true,
	TypeTripEnded:           true,
	TypeExpensesSubmitted:   true,
	TypeExpensesRecalled:    true,
	TypeExpensesApproved:    true,
	TypeExpensesReturned:    true,
	TypeTripRejected:        true,
	TypeTripCancelled:       true,
	TypeStatusChanged:       true,
	TypeSubmissionProcessed: true,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	return validTypes[t]
}
