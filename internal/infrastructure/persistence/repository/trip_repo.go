package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/workflow"
	"go.uber.org/zap"
)

const tripColumns = `
	id, name, form_uuid, sales_order_id, sales_order_name, purpose, status, active,
	employee_id, manager_id, organizer_id,
	submission_date, manager_approval_date, organizer_submission_date, plan_approval_date,
	actual_start_date, actual_end_date, expense_submission_date, expense_approval_date, expense_approved_by,
	return_comment, rejection_reason, rejection_comment, rejected_by, rejection_date,
	cancelled_by, cancellation_date,
	currency, manager_max_budget, manager_comments, organizer_planned_cost, expense_total,
	final_total_cost, budget_difference, budget_status,
	plan_notes, plan_items_json, expense_notes, no_expenses,
	project_id, task_id, created_at, updated_at`

// TripRepository implements port.TripRepository
type TripRepository struct {
	base
	logger *zap.Logger
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB, logger *zap.Logger) port.TripRepository {
	return &TripRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a trip and sets its ID
func (r *TripRepository) Create(ctx context.Context, trip *entity.TripRequest) error {
	now := time.Now()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = now
	}
	if trip.UpdatedAt.IsZero() {
		trip.UpdatedAt = trip.CreatedAt
	}

	query := `INSERT INTO trips (` + tripColumns[len("\n\tid,"):] + `) VALUES (
		?, ?, ?, ?, ?, ?, ?,
		?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?, ?, ?,
		?, ?, ?, ?, ?,
		?, ?,
		?, ?, ?, ?, ?,
		?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?, ?)`

	result, err := r.exec(ctx).ExecContext(ctx, query, tripArgs(trip)...)
	if err != nil {
		r.logger.Error("Failed to create trip", zap.String("name", trip.Name), zap.Error(err))
		return fmt.Errorf("failed to create trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	trip.ID = id
	return nil
}

// GetByID returns nil when the trip does not exist
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*entity.TripRequest, error) {
	row := r.exec(ctx).QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	trip, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get trip", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// Update writes every column of the trip
func (r *TripRepository) Update(ctx context.Context, trip *entity.TripRequest) error {
	query := `
		UPDATE trips SET
			name = ?, form_uuid = ?, sales_order_id = ?, sales_order_name = ?, purpose = ?, status = ?, active = ?,
			employee_id = ?, manager_id = ?, organizer_id = ?,
			submission_date = ?, manager_approval_date = ?, organizer_submission_date = ?, plan_approval_date = ?,
			actual_start_date = ?, actual_end_date = ?, expense_submission_date = ?, expense_approval_date = ?, expense_approved_by = ?,
			return_comment = ?, rejection_reason = ?, rejection_comment = ?, rejected_by = ?, rejection_date = ?,
			cancelled_by = ?, cancellation_date = ?,
			currency = ?, manager_max_budget = ?, manager_comments = ?, organizer_planned_cost = ?, expense_total = ?,
			final_total_cost = ?, budget_difference = ?, budget_status = ?,
			plan_notes = ?, plan_items_json = ?, expense_notes = ?, no_expenses = ?,
			project_id = ?, task_id = ?, created_at = ?, updated_at = ?
		WHERE id = ?`

	if trip.UpdatedAt.IsZero() {
		trip.UpdatedAt = time.Now()
	}
	args := append(tripArgs(trip), trip.ID)
	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update trip", zap.Int64("id", trip.ID), zap.Error(err))
		return fmt.Errorf("failed to update trip: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("trip %d: %w", trip.ID, entity.ErrNotFound)
	}
	return nil
}

// List returns trips ordered by ID
func (r *TripRepository) List(ctx context.Context, limit, offset int) ([]*entity.TripRequest, error) {
	rows, err := r.exec(ctx).QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list trips", zap.Error(err))
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*entity.TripRequest
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// tripArgs lists the column values in tripColumns order, without id
func tripArgs(t *entity.TripRequest) []interface{} {
	return []interface{}{
		t.Name, t.FormUUID, t.SalesOrderID, t.SalesOrderName, t.Purpose, string(t.Status), t.Active,
		t.EmployeeID, nullID(t.ManagerID), nullID(t.OrganizerID),
		nullTime(t.SubmissionDate), nullTime(t.ManagerApprovalDate), nullTime(t.OrganizerSubmissionDate), nullTime(t.PlanApprovalDate),
		nullTime(t.ActualStartDate), nullTime(t.ActualEndDate), nullTime(t.ExpenseSubmissionDate), nullTime(t.ExpenseApprovalDate), nullID(t.ExpenseApprovedBy),
		t.ReturnComment, string(t.RejectionReason), t.RejectionComment, nullID(t.RejectedBy), nullTime(t.RejectionDate),
		nullID(t.CancelledBy), nullTime(t.CancellationDate),
		t.Currency, t.ManagerMaxBudget, t.ManagerComments, t.OrganizerPlannedCost, t.ExpenseTotal,
		t.FinalTotalCost, t.BudgetDifference, string(t.BudgetStatus),
		t.PlanNotes, t.PlanItemsJSON, t.ExpenseNotes, t.NoExpenses,
		nullID(t.ProjectID), nullID(t.TaskID), t.CreatedAt, t.UpdatedAt,
	}
}

func scanTrip(row scanner) (*entity.TripRequest, error) {
	var t entity.TripRequest
	var status, rejectionReason, budgetStatus string
	var salesOrderID, managerID, organizerID, approvedBy sql.NullInt64
	var rejectedBy, cancelledBy, projectID, taskID sql.NullInt64
	var submitted, managerApproved, organizerSubmitted, planApproved sql.NullTime
	var started, ended, expenseSubmitted, expenseApproved sql.NullTime
	var rejected, cancelled sql.NullTime

	err := row.Scan(
		&t.ID, &t.Name, &t.FormUUID, &salesOrderID, &t.SalesOrderName, &t.Purpose, &status, &t.Active,
		&t.EmployeeID, &managerID, &organizerID,
		&submitted, &managerApproved, &organizerSubmitted, &planApproved,
		&started, &ended, &expenseSubmitted, &expenseApproved, &approvedBy,
		&t.ReturnComment, &rejectionReason, &t.RejectionComment, &rejectedBy, &rejected,
		&cancelledBy, &cancelled,
		&t.Currency, &t.ManagerMaxBudget, &t.ManagerComments, &t.OrganizerPlannedCost, &t.ExpenseTotal,
		&t.FinalTotalCost, &t.BudgetDifference, &budgetStatus,
		&t.PlanNotes, &t.PlanItemsJSON, &t.ExpenseNotes, &t.NoExpenses,
		&projectID, &taskID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = workflow.State(status)
	t.RejectionReason = entity.RejectionReason(rejectionReason)
	t.BudgetStatus = entity.BudgetStatus(budgetStatus)
	if salesOrderID.Valid {
		id := salesOrderID.Int64
		t.SalesOrderID = &id
	}
	t.ManagerID = managerID.Int64
	t.OrganizerID = organizerID.Int64
	t.ExpenseApprovedBy = approvedBy.Int64
	t.RejectedBy = rejectedBy.Int64
	t.CancelledBy = cancelledBy.Int64
	t.ProjectID = projectID.Int64
	t.TaskID = taskID.Int64

	t.SubmissionDate = timePtr(submitted)
	t.ManagerApprovalDate = timePtr(managerApproved)
	t.OrganizerSubmissionDate = timePtr(organizerSubmitted)
	t.PlanApprovalDate = timePtr(planApproved)
	t.ActualStartDate = timePtr(started)
	t.ActualEndDate = timePtr(ended)
	t.ExpenseSubmissionDate = timePtr(expenseSubmitted)
	t.ExpenseApprovalDate = timePtr(expenseApproved)
	t.RejectionDate = timePtr(rejected)
	t.CancellationDate = timePtr(cancelled)
	return &t, nil
}

// Verify interface compliance
var _ port.TripRepository = (*TripRepository)(nil)
