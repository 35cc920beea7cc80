package workflow

import (
	"context"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/event"
	domainwf "github.com/garyjia/business-trip/internal/domain/workflow"
)

// Transition describes one status-changing operation on a trip
type Transition struct {
	TripID  int64
	Trigger domainwf.Trigger
	ActorID int64
	Note    string

	// Apply runs inside the transaction on a freshly loaded trip, after the
	// status check and before the new status is set. Returning an error
	// aborts the transition with no writes.
	Apply func(ctx context.Context, trip *entity.TripRequest) error

	// Event is emitted after commit in addition to the status-changed event
	Event   event.Type
	Payload map[string]interface{}
}

// WorkflowEngine performs trip status transitions
type WorkflowEngine interface {
	// Fire checks the trigger against the trip's current status, applies the
	// operation and persists the new status with a history entry atomically
	Fire(ctx context.Context, t Transition) (*entity.TripRequest, error)

	// Force moves a trip to any valid status, bypassing the transition table
	Force(ctx context.Context, tripID, actorID int64, target domainwf.State, note string) (*entity.TripRequest, error)

	// PermittedTriggers lists what can be fired from the trip's current status
	PermittedTriggers(ctx context.Context, trip *entity.TripRequest) []domainwf.Trigger
}
