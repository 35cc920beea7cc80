package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/business-trip/internal/application/dispatcher"
	"github.com/garyjia/business-trip/internal/application/port"
	wf "github.com/garyjia/business-trip/internal/application/workflow"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/event"
	domainwf "github.com/garyjia/business-trip/internal/domain/workflow"
	"github.com/garyjia/business-trip/pkg/utils"
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowSettings are the company-level knobs of the trip workflow
type WorkflowSettings struct {
	// AdminUserID reviews requests of employees without a manager
	AdminUserID int64
	// UndoExpenseApprovalDaysLimit bounds undoing an expense approval; 0 means no limit
	UndoExpenseApprovalDaysLimit int
	CompanyCurrency              string
	// DefaultProjectName groups tasks of trips without a sales order
	DefaultProjectName string
}

// CreateTripInput carries the optional sales order a trip is raised for
type CreateTripInput struct {
	SalesOrderID   *int64 `json:"sales_order_id"`
	SalesOrderName string `json:"sales_order_name"`
}

// AssignInput is the manager's approval of a submitted request
type AssignInput struct {
	OrganizerID int64   `json:"organizer_id" binding:"required"`
	MaxBudget   float64 `json:"max_budget" binding:"required"`
	Comments    string  `json:"comments"`
}

// PlanInput is the organizer's trip plan. PlannedCost overrides the item total.
type PlanInput struct {
	Notes       string                `json:"notes"`
	Items       []entity.PlanLineItem `json:"items"`
	PlannedCost *float64              `json:"planned_cost"`
}

// ExpenseInput is the employee's expense report
type ExpenseInput struct {
	Total      float64 `json:"total"`
	Notes      string  `json:"notes"`
	NoExpenses bool    `json:"no_expenses"`
}

// RejectInput is the manager's rejection of a submitted request
type RejectInput struct {
	Reason  entity.RejectionReason `json:"reason" binding:"required"`
	Comment string                 `json:"comment"`
}

// TripView is a trip as seen by one caller
type TripView struct {
	Trip                   *entity.TripRequest     `json:"trip"`
	Roles                  entity.RoleFlags        `json:"roles"`
	Duration               entity.TravelDuration   `json:"duration"`
	DurationLabel          string                  `json:"duration_label"`
	ActualDurationDays     int                     `json:"actual_duration_days"`
	PermittedActions       []domainwf.Trigger      `json:"permitted_actions"`
	CanCancel              bool                    `json:"can_cancel"`
	CanUndoExpenseApproval bool                    `json:"can_undo_expense_approval"`
	Documents              map[string]string       `json:"documents,omitempty"`
	History                []*entity.StatusHistory `json:"history"`
	Messages               []*entity.Message       `json:"messages"`
}

// TripService runs the business trip lifecycle
type TripService interface {
	Create(ctx context.Context, actor *entity.User, in CreateTripInput) (*entity.TripRequest, error)
	Get(ctx context.Context, actor *entity.User, id int64) (*TripView, error)

	Submit(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	ReturnToEmployee(ctx context.Context, actor *entity.User, id int64, comment string) (*entity.TripRequest, error)
	AssignOrganizer(ctx context.Context, actor *entity.User, id int64, in AssignInput) (*entity.TripRequest, error)
	Reject(ctx context.Context, actor *entity.User, id int64, in RejectInput) (*entity.TripRequest, error)
	Cancel(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)

	SavePlan(ctx context.Context, actor *entity.User, id int64, in PlanInput) (*entity.TripRequest, error)
	MarkOrganized(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	ConfirmPlan(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)

	StartTrip(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	EndTrip(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)

	SubmitExpenses(ctx context.Context, actor *entity.User, id int64, in ExpenseInput) (*entity.TripRequest, error)
	RecallExpenses(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	ApproveExpenses(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	ReturnExpenses(ctx context.Context, actor *entity.User, id int64, comment string) (*entity.TripRequest, error)

	UndoExpenseApproval(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	UndoPlanConfirmation(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error)
	ForceState(ctx context.Context, actor *entity.User, id int64, target domainwf.State, note string) (*entity.TripRequest, error)
}

// TripRepositories groups the stores the trip service reads and writes
type TripRepositories struct {
	Trips    port.TripRepository
	Data     port.TripDataRepository
	Persons  port.AccompanyingPersonRepository
	Forms    port.FormRepository
	History  port.HistoryRepository
	Users    port.UserRepository
	Projects port.ProjectRepository
}

type tripServiceImpl struct {
	repos         TripRepositories
	engine        wf.WorkflowEngine
	notifications NotificationService
	dispatcher    dispatcher.Dispatcher
	txManager     port.TransactionManager
	settings      WorkflowSettings
	logger        Logger
	now           func() time.Time
}

// NewTripService creates a new TripService
func NewTripService(
	repos TripRepositories,
	engine wf.WorkflowEngine,
	notifications NotificationService,
	d dispatcher.Dispatcher,
	txManager port.TransactionManager,
	settings WorkflowSettings,
	logger Logger,
) TripService {
	if settings.DefaultProjectName == "" {
		settings.DefaultProjectName = "Business Trips"
	}
	return &tripServiceImpl{
		repos:         repos,
		engine:        engine,
		notifications: notifications,
		dispatcher:    d,
		txManager:     txManager,
		settings:      settings,
		logger:        logger,
		now:           time.Now,
	}
}

// Create opens a draft trip with its empty data record and form
func (s *tripServiceImpl) Create(ctx context.Context, actor *entity.User, in CreateTripInput) (*entity.TripRequest, error) {
	if actor == nil {
		return nil, entity.Forbidden("create", "unknown caller")
	}

	now := s.now()
	trip := &entity.TripRequest{
		Name:           entity.TripName(in.SalesOrderName, actor.Name, now),
		FormUUID:       uuid.NewString(),
		SalesOrderID:   in.SalesOrderID,
		SalesOrderName: in.SalesOrderName,
		Purpose:        entity.TripPurpose(in.SalesOrderName),
		Status:         domainwf.StateDraft,
		Active:         true,
		EmployeeID:     actor.ID,
		Currency:       s.settings.CompanyCurrency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repos.Trips.Create(txCtx, trip); err != nil {
			return fmt.Errorf("create trip: %w", err)
		}

		data := &entity.TripData{TripID: trip.ID, Currency: trip.Currency, CreatedAt: now, UpdatedAt: now}
		if err := s.repos.Data.Create(txCtx, data); err != nil {
			return fmt.Errorf("create trip data: %w", err)
		}
		trip.Data = data

		form := &entity.Form{
			UUID:      trip.FormUUID,
			TripID:    trip.ID,
			Title:     trip.Name,
			State:     entity.FormStatePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repos.Forms.Create(txCtx, form); err != nil {
			return fmt.Errorf("create form: %w", err)
		}

		return s.repos.History.Create(txCtx, &entity.StatusHistory{
			TripID:    trip.ID,
			ActorID:   actor.ID,
			NewStatus: domainwf.StateDraft.String(),
			Action:    "create",
			Timestamp: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create trip", "error", err, "user_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Trip created", "trip_id", trip.ID, "name", trip.Name, "form_uuid", trip.FormUUID)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeTripCreated, trip.ID, actor.ID, map[string]interface{}{
			"form_uuid": trip.FormUUID,
		}))
	}
	return trip, nil
}

// Get assembles the caller's view; costs are hidden from callers without cost visibility
func (s *tripServiceImpl) Get(ctx context.Context, actor *entity.User, id int64) (*TripView, error) {
	trip, err := s.loadTrip(ctx, id)
	if err != nil {
		return nil, err
	}

	roles := entity.ComputeRoleFlags(actor, trip)
	if !(roles.IsOwner || roles.IsManager || roles.IsOrganizer || roles.IsFinance || roles.CanSeeCosts) {
		return nil, entity.Forbidden("view", "you are not involved in this trip")
	}

	data, err := s.repos.Data.GetByTripID(ctx, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("load trip data: %w", err)
	}
	if data != nil {
		persons, err := s.repos.Persons.GetByTripDataID(ctx, data.ID)
		if err != nil {
			return nil, fmt.Errorf("load accompanying persons: %w", err)
		}
		data.AccompanyingPersons = persons
	}
	trip.Data = data

	history, err := s.repos.History.GetByTripID(ctx, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	messages, err := s.notifications.Messages(ctx, trip.ID, actor)
	if err != nil {
		return nil, err
	}

	view := &TripView{
		Trip:                   trip,
		Roles:                  roles,
		PermittedActions:       s.engine.PermittedTriggers(ctx, trip),
		CanCancel:              roles.IsOwner && canCancel(trip),
		CanUndoExpenseApproval: s.undoAllowed(actor, trip) == nil,
		History:                history,
		Messages:               messages,
		ActualDurationDays:     entity.ActualDurationDays(trip.ActualStartDate, trip.ActualEndDate),
	}
	if data != nil {
		view.Duration = entity.PlannedDuration(data.TravelStartDate, data.TravelEndDate, data.ManualTravelDuration)
		view.DurationLabel = view.Duration.String()
		view.Documents = documentURLs(data)
	}
	if !roles.CanSeeCosts {
		hideCosts(trip)
	}
	return view, nil
}

// Submit sends a draft or returned request to the manager
func (s *tripServiceImpl) Submit(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	const op = "submit"
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerSubmit,
		Event:   event.TypeSubmittedToManager,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !trip.IsOwner(actor.ID) {
				return entity.Forbidden(op, "only the owner of the request can submit it")
			}
			data, err := s.repos.Data.GetByTripID(ctx, trip.ID)
			if err != nil {
				return fmt.Errorf("load trip data: %w", err)
			}
			trip.Data = data
			if !trip.HasRequiredDetails() {
				return entity.Invalid(op, "fill in destination, purpose and travel dates before submitting")
			}
			if trip.Data.TravelEndDate.Before(*trip.Data.TravelStartDate) {
				return entity.Invalid(op, "end date cannot be before start date")
			}
			if trip.ManagerID == 0 {
				managerID, err := s.resolveManager(ctx, trip.EmployeeID)
				if err != nil {
					return err
				}
				trip.ManagerID = managerID
			}
			now := s.now()
			trip.SubmissionDate = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>Business trip request <strong>%s</strong> was submitted by %s and awaits your review.</p>",
			utils.EscapeHTML(trip.Name), utils.EscapeHTML(actor.Name)),
		trip.ManagerID))
	return trip, nil
}

// resolveManager follows the employee's reporting line, then the configured admin
func (s *tripServiceImpl) resolveManager(ctx context.Context, employeeID int64) (int64, error) {
	employee, err := s.repos.Users.GetByID(ctx, employeeID)
	if err != nil {
		return 0, fmt.Errorf("load employee: %w", err)
	}
	if employee != nil && employee.ManagerID != 0 {
		return employee.ManagerID, nil
	}
	if s.settings.AdminUserID != 0 {
		s.logger.Warn("Employee has no manager, routing to admin", "employee_id", employeeID, "admin_id", s.settings.AdminUserID)
		return s.settings.AdminUserID, nil
	}
	return 0, entity.Invalid("submit", "your manager is not set, please contact HR")
}

// ReturnToEmployee sends a submitted request back for changes
func (s *tripServiceImpl) ReturnToEmployee(ctx context.Context, actor *entity.User, id int64, comment string) (*entity.TripRequest, error) {
	const op = "return_to_employee"
	comment = strings.TrimSpace(comment)
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerReturnToEmployee,
		Note:    comment,
		Event:   event.TypeReturnedToEmployee,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !entity.ComputeRoleFlags(actor, trip).IsManager {
				return entity.Forbidden(op, "only the assigned manager or an administrator can return the request")
			}
			if comment == "" {
				return entity.Invalid(op, "a comment explaining what to change is required")
			}
			trip.ReturnComment = comment
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>Your request <strong>%s</strong> was returned for changes.</p><p>%s</p>",
			utils.EscapeHTML(trip.Name), utils.EscapeHTML(comment)),
		trip.EmployeeID))
	return trip, nil
}

// AssignOrganizer approves a submitted request with a budget and hands it to an organizer
func (s *tripServiceImpl) AssignOrganizer(ctx context.Context, actor *entity.User, id int64, in AssignInput) (*entity.TripRequest, error) {
	const op = "assign_organizer"
	var organizer *entity.User
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerAssignOrganizer,
		Note:    in.Comments,
		Event:   event.TypeOrganizerAssigned,
		Payload: map[string]interface{}{"organizer_id": in.OrganizerID},
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !entity.ComputeRoleFlags(actor, trip).IsManager {
				return entity.Forbidden(op, "only the assigned manager or an administrator can perform this action")
			}
			if in.MaxBudget <= 0 {
				return entity.Invalid(op, "maximum budget must be a positive value")
			}
			var err error
			organizer, err = s.repos.Users.GetByID(ctx, in.OrganizerID)
			if err != nil {
				return fmt.Errorf("load organizer: %w", err)
			}
			if organizer == nil {
				return entity.Invalid(op, "organizer %d does not exist", in.OrganizerID)
			}

			now := s.now()
			trip.OrganizerID = organizer.ID
			trip.ManagerMaxBudget = in.MaxBudget
			trip.ManagerComments = in.Comments
			trip.ManagerApprovalDate = &now
			trip.RecomputeBudget()
			return s.ensureTask(ctx, trip)
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>You have been assigned to organize the business trip <strong>%s</strong>.</p>",
			utils.EscapeHTML(trip.Name)),
		trip.OrganizerID))
	s.notify(trip, s.notifications.PostConfidential(ctx, trip, actor.ID,
		fmt.Sprintf("<p><strong>Budget approved</strong></p><ul><li>Maximum budget: %.2f %s</li><li>Manager comments: %s</li></ul>",
			trip.ManagerMaxBudget, trip.Currency, utils.EscapeHTML(in.Comments))))
	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>Your request <strong>%s</strong> was approved and %s will organize the trip.</p>",
			utils.EscapeHTML(trip.Name), utils.EscapeHTML(organizer.Name)),
		trip.EmployeeID))
	return trip, nil
}

// ensureTask links the trip to its organization task, creating project and task once
func (s *tripServiceImpl) ensureTask(ctx context.Context, trip *entity.TripRequest) error {
	task, err := s.repos.Projects.GetTaskByTripID(ctx, trip.ID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		name := trip.SalesOrderName
		if name == "" {
			name = s.settings.DefaultProjectName
		}
		project, err := s.repos.Projects.FindOrCreateProject(ctx, name)
		if err != nil {
			return fmt.Errorf("find project: %w", err)
		}
		task = &entity.Task{
			ProjectID:  project.ID,
			TripID:     trip.ID,
			Name:       trip.Name,
			AssigneeID: trip.OrganizerID,
			CreatedAt:  s.now(),
		}
		if err := s.repos.Projects.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
	}
	trip.ProjectID = task.ProjectID
	trip.TaskID = task.ID

	followers := uniqueIDs([]int64{trip.EmployeeID, trip.ManagerID, trip.OrganizerID})
	if err := s.repos.Projects.AddFollowers(ctx, task.ID, followers); err != nil {
		return fmt.Errorf("add task followers: %w", err)
	}
	return nil
}

// Reject closes a submitted request for good
func (s *tripServiceImpl) Reject(ctx context.Context, actor *entity.User, id int64, in RejectInput) (*entity.TripRequest, error) {
	const op = "reject"
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerReject,
		Note:    string(in.Reason),
		Event:   event.TypeTripRejected,
		Payload: map[string]interface{}{"reason": string(in.Reason)},
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !entity.ComputeRoleFlags(actor, trip).IsManager {
				return entity.Forbidden(op, "only the assigned manager or an administrator can reject the request")
			}
			if !in.Reason.IsValid() {
				return entity.Invalid(op, "unknown rejection reason %q", in.Reason)
			}
			if in.Reason == entity.RejectionOther && strings.TrimSpace(in.Comment) == "" {
				return entity.Invalid(op, "explain the rejection when the reason is other")
			}
			now := s.now()
			trip.RejectionReason = in.Reason
			trip.RejectionComment = in.Comment
			trip.RejectedBy = actor.ID
			trip.RejectionDate = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("<p>Your request <strong>%s</strong> was rejected (%s).</p>",
		utils.EscapeHTML(trip.Name), strings.ReplaceAll(string(in.Reason), "_", " "))
	if in.Comment != "" {
		body += fmt.Sprintf("<p>%s</p>", utils.EscapeHTML(in.Comment))
	}
	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID, body, trip.EmployeeID))
	return trip, nil
}

// canCancel mirrors the cancel guard of the state machine
func canCancel(trip *entity.TripRequest) bool {
	switch trip.Status {
	case domainwf.StateDraft:
		return true
	case domainwf.StateSubmitted:
		return trip.ManagerApprovalDate == nil && trip.OrganizerSubmissionDate == nil
	}
	return false
}

// Cancel withdraws a request nobody has acted on yet
func (s *tripServiceImpl) Cancel(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	const op = "cancel"
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerCancel,
		Event:   event.TypeTripCancelled,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !trip.IsOwner(actor.ID) {
				return entity.Forbidden(op, "only the owner of this trip request can cancel it")
			}
			now := s.now()
			trip.CancelledBy = actor.ID
			trip.CancellationDate = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	if trip.ManagerID != 0 {
		s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
			fmt.Sprintf("<p>%s cancelled the request <strong>%s</strong>.</p>",
				utils.EscapeHTML(actor.Name), utils.EscapeHTML(trip.Name)),
			trip.ManagerID))
	}
	return trip, nil
}

// SavePlan stores the organizer's plan without changing the status
func (s *tripServiceImpl) SavePlan(ctx context.Context, actor *entity.User, id int64, in PlanInput) (*entity.TripRequest, error) {
	const op = "save_plan"
	if actor == nil {
		return nil, entity.Forbidden(op, "unknown caller")
	}

	for i, item := range in.Items {
		if err := item.Validate(); err != nil {
			return nil, entity.Invalid(op, "plan item %d: %v", i+1, err)
		}
	}
	if in.PlannedCost != nil && *in.PlannedCost < 0 {
		return nil, entity.Invalid(op, "planned cost cannot be negative")
	}
	encoded, err := entity.EncodePlanItems(in.Items)
	if err != nil {
		return nil, err
	}

	var trip *entity.TripRequest
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		trip, err = s.loadTrip(txCtx, id)
		if err != nil {
			return err
		}
		if trip.Status != domainwf.StatePendingOrganization && trip.Status != domainwf.StateOrganizationDone {
			return entity.Invalid(op, "the plan can only be edited while the trip is being organized")
		}
		if !entity.ComputeRoleFlags(actor, trip).IsOrganizer {
			return entity.Forbidden(op, "only the assigned organizer or an administrator can edit the plan")
		}

		trip.PlanNotes = in.Notes
		trip.PlanItemsJSON = encoded
		trip.OrganizerPlannedCost = entity.PlanTotal(in.Items)
		if in.PlannedCost != nil {
			trip.OrganizerPlannedCost = *in.PlannedCost
		}
		trip.RecomputeBudget()
		trip.UpdatedAt = s.now()
		return s.repos.Trips.Update(txCtx, trip)
	})
	if err != nil {
		s.logResult(op, id, err)
		return nil, err
	}

	s.logger.Info("Trip plan saved", "trip_id", id, "items", len(in.Items), "planned_cost", trip.OrganizerPlannedCost)
	return trip, nil
}

// MarkOrganized records that bookings are done before the plan is confirmed
func (s *tripServiceImpl) MarkOrganized(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	return s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerMarkOrganized,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !entity.ComputeRoleFlags(actor, trip).IsOrganizer {
				return entity.Forbidden("mark_organized", "only the assigned organizer or an administrator can do this")
			}
			return nil
		},
	})
}

// ConfirmPlan finalizes the organizer's plan; the trip then waits to start
func (s *tripServiceImpl) ConfirmPlan(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	const op = "confirm_plan"
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerConfirmPlan,
		Event:   event.TypePlanConfirmed,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !entity.ComputeRoleFlags(actor, trip).IsOrganizer {
				return entity.Forbidden(op, "only the assigned trip organizer or an administrator can confirm the planning")
			}
			if strings.TrimSpace(trip.PlanNotes) == "" && trip.PlanItemsJSON == "" {
				return entity.Invalid(op, "provide trip plan details before confirming")
			}
			if trip.OrganizerPlannedCost <= 0 {
				return entity.Invalid(op, "set a planned cost greater than zero before confirming")
			}
			now := s.now()
			trip.OrganizerSubmissionDate = &now
			trip.PlanApprovalDate = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>The plan for <strong>%s</strong> is confirmed. Start the trip when you leave.</p>",
			utils.EscapeHTML(trip.Name)),
		trip.EmployeeID))
	s.notify(trip, s.notifications.PostConfidential(ctx, trip, actor.ID,
		fmt.Sprintf("<p><strong>Trip plan confirmed</strong></p><ul><li>Maximum budget: %.2f %s</li><li>Planned cost: %.2f %s</li></ul>",
			trip.ManagerMaxBudget, trip.Currency, trip.OrganizerPlannedCost, trip.Currency)))
	return trip, nil
}

// StartTrip marks the employee as travelling
func (s *tripServiceImpl) StartTrip(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerStartTrip,
		Event:   event.TypeTripStarted,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !trip.IsOwner(actor.ID) {
				return entity.Forbidden("start_trip", "only the employee assigned to the trip can start it")
			}
			now := s.now()
			trip.ActualStartDate = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>%s started the trip <strong>%s</strong>.</p>", utils.EscapeHTML(actor.Name), utils.EscapeHTML(trip.Name)),
		trip.ManagerID, trip.OrganizerID))
	return trip, nil
}

// EndTrip marks the employee as back; expenses are due next
func (s *tripServiceImpl) EndTrip(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerEndTrip,
		Event:   event.TypeTripEnded,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !trip.IsOwner(actor.ID) {
				return entity.Forbidden("end_trip", "only the employee assigned to the trip can end it")
			}
			now := s.now()
			trip.ActualEndDate = &now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	days := entity.ActualDurationDays(trip.ActualStartDate, trip.ActualEndDate)
	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>The trip <strong>%s</strong> ended after %s. Please submit your travel expenses.</p>",
			utils.EscapeHTML(trip.Name), entity.TravelDuration{Value: float64(days)}.String()),
		trip.EmployeeID))
	return trip, nil
}

// SubmitExpenses reports the employee's own expenses for review
func (s *tripServiceImpl) SubmitExpenses(ctx context.Context, actor *entity.User, id int64, in ExpenseInput) (*entity.TripRequest, error) {
	const op = "submit_expenses"
	resubmission := false
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerSubmitExpenses,
		Event:   event.TypeExpensesSubmitted,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !trip.IsOwner(actor.ID) {
				return entity.Forbidden(op, "only the owner of this request can submit expenses")
			}
			total := in.Total
			if in.NoExpenses {
				total = 0
			} else if err := utils.ValidateAmount(total); err != nil {
				return entity.Invalid(op, "%v", err)
			}

			resubmission = trip.Status == domainwf.StateExpenseReturned
			now := s.now()
			trip.ExpenseTotal = total
			trip.ExpenseNotes = in.Notes
			trip.NoExpenses = in.NoExpenses
			trip.ExpenseSubmissionDate = &now
			trip.RecomputeBudget()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	var headline string
	switch {
	case trip.NoExpenses && resubmission:
		headline = "resubmitted the expense report with no expenses to declare"
	case trip.NoExpenses:
		headline = "reported no expenses to declare"
	case resubmission:
		headline = fmt.Sprintf("resubmitted corrected expenses of %.2f %s", trip.ExpenseTotal, trip.Currency)
	default:
		headline = fmt.Sprintf("submitted expenses of %.2f %s", trip.ExpenseTotal, trip.Currency)
	}
	body := fmt.Sprintf("<p>%s %s for <strong>%s</strong>.</p>",
		utils.EscapeHTML(actor.Name), headline, utils.EscapeHTML(trip.Name))
	if trip.ExpenseNotes != "" {
		body += fmt.Sprintf("<p>%s</p>", utils.EscapeHTML(trip.ExpenseNotes))
	}
	s.notify(trip, s.notifications.PostConfidential(ctx, trip, actor.ID, body))
	return trip, nil
}

// RecallExpenses pulls an expense report back before it is reviewed
func (s *tripServiceImpl) RecallExpenses(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerRecallExpenses,
		Event:   event.TypeExpensesRecalled,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !trip.IsOwner(actor.ID) {
				return entity.Forbidden("recall_expenses", "only the owner of this request can recall expenses")
			}
			trip.ExpenseSubmissionDate = nil
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>%s recalled the expense report of <strong>%s</strong>.</p>",
			utils.EscapeHTML(actor.Name), utils.EscapeHTML(trip.Name)),
		trip.ManagerID, trip.OrganizerID))
	return trip, nil
}

// ApproveExpenses closes the trip and reports the budget outcome
func (s *tripServiceImpl) ApproveExpenses(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	const op = "approve_expenses"
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerApproveExpenses,
		Event:   event.TypeExpensesApproved,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			roles := entity.ComputeRoleFlags(actor, trip)
			if !(roles.IsFinance || roles.IsManager) {
				return entity.Forbidden(op, "only the organizer, the manager, finance or an administrator can approve expenses")
			}
			now := s.now()
			trip.ExpenseApprovalDate = &now
			trip.ExpenseApprovedBy = actor.ID
			trip.RecomputeBudget()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostConfidential(ctx, trip, actor.ID, budgetAnalysis(trip), trip.ManagerID, trip.OrganizerID))
	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>Your travel expense submission for trip <strong>%s</strong> has been approved. The business trip is now completed.</p>",
			utils.EscapeHTML(trip.Name)),
		trip.EmployeeID))
	return trip, nil
}

func budgetAnalysis(trip *entity.TripRequest) string {
	var outcome string
	switch trip.BudgetStatus {
	case entity.BudgetOver:
		outcome = fmt.Sprintf("%.2f %s over budget", -trip.BudgetDifference, trip.Currency)
	case entity.BudgetUnder:
		outcome = fmt.Sprintf("%.2f %s under budget", trip.BudgetDifference, trip.Currency)
	default:
		outcome = "on budget"
	}
	return fmt.Sprintf(`<p><strong>Trip Cost Analysis (Confidential)</strong></p>
<ul>
<li>Maximum budget: %.2f %s</li>
<li>Planned travel costs: %.2f %s</li>
<li>Employee expenses: %.2f %s</li>
<li>Final total cost: %.2f %s</li>
<li>Budget status: %s</li>
</ul>`,
		trip.ManagerMaxBudget, trip.Currency,
		trip.OrganizerPlannedCost, trip.Currency,
		trip.ExpenseTotal, trip.Currency,
		trip.FinalTotalCost, trip.Currency,
		outcome)
}

// ReturnExpenses sends an expense report back for correction
func (s *tripServiceImpl) ReturnExpenses(ctx context.Context, actor *entity.User, id int64, comment string) (*entity.TripRequest, error) {
	const op = "return_expenses"
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerReturnExpenses,
		Note:    comment,
		Event:   event.TypeExpensesReturned,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			roles := entity.ComputeRoleFlags(actor, trip)
			if !(roles.IsFinance || roles.IsManager) {
				return entity.Forbidden(op, "only the organizer, the manager, finance or an administrator can return expenses")
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("<p>Your travel expense submission for trip <strong>%s</strong> has been returned for revision by %s.</p>",
		utils.EscapeHTML(trip.Name), utils.EscapeHTML(actor.Name))
	if strings.TrimSpace(comment) != "" {
		body += fmt.Sprintf("<p><strong>Comments:</strong> %s</p>", utils.EscapeHTML(comment))
	}
	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID, body, trip.EmployeeID))
	return trip, nil
}

// undoAllowed checks role and time window of undoing an expense approval
func (s *tripServiceImpl) undoAllowed(actor *entity.User, trip *entity.TripRequest) error {
	const op = "undo_expense_approval"
	if !actor.IsAdmin() && !actor.HasGroup(entity.GroupFinance) {
		return entity.Forbidden(op, "only finance or administrators can undo an approval")
	}
	if trip.Status != domainwf.StateCompleted || trip.ExpenseApprovalDate == nil {
		return entity.Invalid(op, "the expenses of this trip are not approved")
	}
	if limit := s.settings.UndoExpenseApprovalDaysLimit; limit > 0 {
		deadline := trip.ExpenseApprovalDate.AddDate(0, 0, limit)
		if s.now().After(deadline) {
			return entity.Invalid(op, "the approval is older than %d days and can no longer be undone", limit)
		}
	}
	return nil
}

// UndoExpenseApproval reopens a completed trip's expense review
func (s *tripServiceImpl) UndoExpenseApproval(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerUndoExpenseApproval,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if err := s.undoAllowed(actor, trip); err != nil {
				return err
			}
			trip.ExpenseApprovalDate = nil
			trip.ExpenseApprovedBy = 0
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>The expense approval of <strong>%s</strong> was undone by %s; the expenses are under review again.</p>",
			utils.EscapeHTML(trip.Name), utils.EscapeHTML(actor.Name)),
		trip.EmployeeID, trip.ManagerID, trip.OrganizerID))
	return trip, nil
}

// UndoPlanConfirmation reopens the organization of a trip that has not started
func (s *tripServiceImpl) UndoPlanConfirmation(ctx context.Context, actor *entity.User, id int64) (*entity.TripRequest, error) {
	trip, err := s.fire(ctx, actor, wf.Transition{
		TripID:  id,
		Trigger: domainwf.TriggerUndoPlanConfirmation,
		Apply: func(ctx context.Context, trip *entity.TripRequest) error {
			if !actor.IsAdmin() && !actor.HasGroup(entity.GroupFinance) {
				return entity.Forbidden("undo_plan_confirmation", "only finance or administrators can undo a plan confirmation")
			}
			trip.OrganizerSubmissionDate = nil
			trip.PlanApprovalDate = nil
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>The plan confirmation of <strong>%s</strong> was undone; organization continues.</p>",
			utils.EscapeHTML(trip.Name)),
		trip.EmployeeID, trip.OrganizerID))
	return trip, nil
}

// ForceState lets an administrator move a trip to any status
func (s *tripServiceImpl) ForceState(ctx context.Context, actor *entity.User, id int64, target domainwf.State, note string) (*entity.TripRequest, error) {
	const op = "force_state"
	if !actor.IsAdmin() {
		return nil, entity.Forbidden(op, "only administrators can change the status manually")
	}

	before, err := s.loadTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	trip, err := s.engine.Force(ctx, id, actor.ID, target, note)
	if err != nil {
		s.logResult(op, id, err)
		return nil, err
	}

	s.notify(trip, s.notifications.PostPublic(ctx, trip, actor.ID,
		fmt.Sprintf("<p>Status manually changed from %s to %s by %s.</p>",
			before.Status, trip.Status, utils.EscapeHTML(actor.Name))))
	return trip, nil
}

// fire runs a transition on behalf of the actor
func (s *tripServiceImpl) fire(ctx context.Context, actor *entity.User, t wf.Transition) (*entity.TripRequest, error) {
	if actor == nil {
		return nil, entity.Forbidden(t.Trigger.String(), "unknown caller")
	}
	t.ActorID = actor.ID

	trip, err := s.engine.Fire(ctx, t)
	if err != nil {
		s.logResult(t.Trigger.String(), t.TripID, err)
		return nil, err
	}
	s.logger.Info("Trip action completed",
		"trip_id", trip.ID,
		"action", t.Trigger,
		"status", trip.Status,
		"actor_id", actor.ID)
	return trip, nil
}

func (s *tripServiceImpl) logResult(op string, tripID int64, err error) {
	if errors.Is(err, entity.ErrValidation) || errors.Is(err, entity.ErrForbidden) || errors.Is(err, entity.ErrNotFound) {
		s.logger.Info("Trip action refused", "action", op, "trip_id", tripID, "reason", err.Error())
		return
	}
	s.logger.Error("Trip action failed", "action", op, "trip_id", tripID, "error", err)
}

// notify logs a failed side effect; the transition itself already committed
func (s *tripServiceImpl) notify(trip *entity.TripRequest, err error) {
	if err != nil {
		s.logger.Warn("Notification failed", "trip_id", trip.ID, "error", err)
	}
}

func (s *tripServiceImpl) loadTrip(ctx context.Context, id int64) (*entity.TripRequest, error) {
	trip, err := s.repos.Trips.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load trip %d: %w", id, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %d: %w", id, entity.ErrNotFound)
	}
	return trip, nil
}

func hideCosts(trip *entity.TripRequest) {
	trip.ManagerMaxBudget = 0
	trip.OrganizerPlannedCost = 0
	trip.FinalTotalCost = 0
	trip.BudgetDifference = 0
	trip.BudgetStatus = ""
	trip.PlanItemsJSON = ""
}

// documentURLs maps each stored document of the trip data to its download address
func documentURLs(data *entity.TripData) map[string]string {
	urls := make(map[string]string)
	for field, doc := range data.Documents() {
		if doc != nil && doc.FileName != "" {
			urls[field] = entity.ContentURL(entity.ModelTripData, data.ID, field, doc.FileName)
		}
	}
	for _, p := range data.AccompanyingPersons {
		if p.IdentityDocument != nil && p.IdentityDocument.FileName != "" {
			key := fmt.Sprintf("%s/%d", entity.ModelAccompanyingPerson, p.ID)
			urls[key] = entity.ContentURL(entity.ModelAccompanyingPerson, p.ID, entity.FieldIdentityDocument, p.IdentityDocument.FileName)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	return urls
}
