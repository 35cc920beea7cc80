package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/dispatcher"
	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/event"
	domainwf "github.com/garyjia/business-trip/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type engineImpl struct {
	tripRepo    port.TripRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock replaces time.Now, used in tests
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	tripRepo port.TripRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		tripRepo:    tripRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Fire(ctx context.Context, t Transition) (*entity.TripRequest, error) {
	op := t.Trigger.String()
	var (
		trip     *entity.TripRequest
		previous domainwf.State
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		trip, err = e.load(txCtx, t.TripID)
		if err != nil {
			return err
		}

		machine := BuildTripStateMachine(trip)
		previous = machine.State()
		if !machine.CanFire(txCtx, t.Trigger) {
			return &entity.ValidationError{
				Op:     op,
				Reason: fmt.Sprintf("not allowed while the trip is %s", previous),
				Kind:   fmt.Errorf("%w: %w", entity.ErrValidation, domainwf.ErrInvalidTransition),
			}
		}

		if t.Apply != nil {
			if err := t.Apply(txCtx, trip); err != nil {
				return err
			}
		}

		if err := machine.Fire(txCtx, t.Trigger); err != nil {
			return entity.Invalid(op, "%v", err)
		}
		return e.persist(txCtx, trip, previous, machine.State(), t.ActorID, op, t.Note)
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, trip, previous, t.ActorID, op, t.Event, t.Payload)
	return trip, nil
}

func (e *engineImpl) Force(ctx context.Context, tripID, actorID int64, target domainwf.State, note string) (*entity.TripRequest, error) {
	op := domainwf.TriggerForceState.String()
	var (
		trip     *entity.TripRequest
		previous domainwf.State
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		trip, err = e.load(txCtx, tripID)
		if err != nil {
			return err
		}

		machine := BuildTripStateMachine(trip)
		previous = machine.State()
		if err := machine.Force(target); err != nil {
			return entity.Invalid(op, "%v", err)
		}
		return e.persist(txCtx, trip, previous, machine.State(), actorID, op, note)
	})
	if err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Warn("Trip status forced",
			"trip_id", tripID,
			"actor_id", actorID,
			"from", previous,
			"to", target)
	}
	e.emit(ctx, trip, previous, actorID, op, "", nil)
	return trip, nil
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, trip *entity.TripRequest) []domainwf.Trigger {
	if trip == nil || !trip.Status.IsValid() {
		return []domainwf.Trigger{}
	}
	return BuildTripStateMachine(trip).PermittedTriggers(ctx)
}

func (e *engineImpl) load(ctx context.Context, tripID int64) (*entity.TripRequest, error) {
	trip, err := e.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load trip %d: %w", tripID, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %d: %w", tripID, entity.ErrNotFound)
	}
	if !trip.Status.IsValid() {
		return nil, fmt.Errorf("trip %d has %w %q", tripID, domainwf.ErrInvalidState, trip.Status)
	}
	return trip, nil
}

func (e *engineImpl) persist(ctx context.Context, trip *entity.TripRequest, from, to domainwf.State, actorID int64, action, note string) error {
	now := e.now()
	trip.Status = to
	trip.UpdatedAt = now
	if err := e.tripRepo.Update(ctx, trip); err != nil {
		return fmt.Errorf("update trip: %w", err)
	}

	history := &entity.StatusHistory{
		TripID:         trip.ID,
		ActorID:        actorID,
		PreviousStatus: from.String(),
		NewStatus:      to.String(),
		Action:         action,
		Note:           note,
		Timestamp:      now,
	}
	if err := e.historyRepo.Create(ctx, history); err != nil {
		return fmt.Errorf("create history record: %w", err)
	}
	return nil
}

func (e *engineImpl) emit(ctx context.Context, trip *entity.TripRequest, previous domainwf.State, actorID int64, action string, typ event.Type, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}

	changed := event.NewEvent(event.TypeStatusChanged, trip.ID, actorID, map[string]interface{}{
		"previous_status": previous.String(),
		"new_status":      trip.Status.String(),
		"action":          action,
	})
	if typ != "" {
		e.dispatcher.DispatchAsync(ctx, changed.Follow(typ, payload))
	}
	e.dispatcher.DispatchAsync(ctx, changed)
}

// IsTransitionError reports whether err came from a trigger fired in the wrong status
func IsTransitionError(err error) bool {
	return errors.Is(err, domainwf.ErrInvalidTransition)
}
