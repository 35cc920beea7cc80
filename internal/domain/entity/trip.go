package entity

import (
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// BudgetStatus classifies final cost against the manager budget
type BudgetStatus string

const (
	BudgetUnder BudgetStatus = "under_budget"
	BudgetOn    BudgetStatus = "on_budget"
	BudgetOver  BudgetStatus = "over_budget"
)

// RejectionReason is the category a manager picks when rejecting a request
type RejectionReason string

const (
	RejectionBudgetExceeded  RejectionReason = "budget_exceeded"
	RejectionTiming          RejectionReason = "timing"
	RejectionNecessity       RejectionReason = "necessity"
	RejectionInformation     RejectionReason = "information"
	RejectionPlanUnsuitable  RejectionReason = "plan_unsuitable"
	RejectionPolicyViolation RejectionReason = "policy_violation"
	RejectionOther           RejectionReason = "other"
)

// IsValid reports whether the reason is one of the known categories
func (r RejectionReason) IsValid() bool {
	switch r {
	case RejectionBudgetExceeded, RejectionTiming, RejectionNecessity, RejectionInformation,
		RejectionPlanUnsuitable, RejectionPolicyViolation, RejectionOther:
		return true
	}
	return false
}

// budgetEpsilon is the tolerance under which a difference counts as on budget
var budgetEpsilon = decimal.NewFromFloat(0.01)

// TripRequest is the aggregate root of one business trip
type TripRequest struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	FormUUID       string         `json:"form_uuid"`
	SalesOrderID   *int64         `json:"sales_order_id,omitempty"`
	SalesOrderName string         `json:"sales_order_name,omitempty"`
	Purpose        string         `json:"purpose"`
	Status         workflow.State `json:"status"`
	Active         bool           `json:"active"`

	EmployeeID  int64 `json:"employee_id"`
	ManagerID   int64 `json:"manager_id,omitempty"`
	OrganizerID int64 `json:"organizer_id,omitempty"`

	SubmissionDate          *time.Time `json:"submission_date,omitempty"`
	ManagerApprovalDate     *time.Time `json:"manager_approval_date,omitempty"`
	OrganizerSubmissionDate *time.Time `json:"organizer_submission_date,omitempty"`
	PlanApprovalDate        *time.Time `json:"plan_approval_date,omitempty"`
	ActualStartDate         *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate           *time.Time `json:"actual_end_date,omitempty"`
	ExpenseSubmissionDate   *time.Time `json:"expense_submission_date,omitempty"`
	ExpenseApprovalDate     *time.Time `json:"expense_approval_date,omitempty"`
	ExpenseApprovedBy       int64      `json:"expense_approved_by,omitempty"`

	ReturnComment    string          `json:"return_comment,omitempty"`
	RejectionReason  RejectionReason `json:"rejection_reason,omitempty"`
	RejectionComment string          `json:"rejection_comment,omitempty"`
	RejectedBy       int64           `json:"rejected_by,omitempty"`
	RejectionDate    *time.Time      `json:"rejection_date,omitempty"`
	CancelledBy      int64           `json:"cancelled_by,omitempty"`
	CancellationDate *time.Time      `json:"cancellation_date,omitempty"`

	Currency             string       `json:"currency"`
	ManagerMaxBudget     float64      `json:"manager_max_budget"`
	ManagerComments      string       `json:"manager_comments,omitempty"`
	OrganizerPlannedCost float64      `json:"organizer_planned_cost"`
	ExpenseTotal         float64      `json:"expense_total"`
	FinalTotalCost       float64      `json:"final_total_cost"`
	BudgetDifference     float64      `json:"budget_difference"`
	BudgetStatus         BudgetStatus `json:"budget_status"`

	PlanNotes     string `json:"plan_notes,omitempty"`
	PlanItemsJSON string `json:"plan_items_json,omitempty"`
	ExpenseNotes  string `json:"expense_notes,omitempty"`
	NoExpenses    bool   `json:"no_expenses"`

	ProjectID int64 `json:"project_id,omitempty"`
	TaskID    int64 `json:"task_id,omitempty"`

	Data *TripData `json:"data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TripName builds the display name of a new trip
func TripName(salesOrderName, userName string, at time.Time) string {
	if salesOrderName != "" {
		return fmt.Sprintf("Trip for SO %s", salesOrderName)
	}
	return fmt.Sprintf("Trip for %s on %s", userName, at.Format("2006-01-02"))
}

// TripPurpose is the sales order name, or Standalone for trips without one
func TripPurpose(salesOrderName string) string {
	if salesOrderName != "" {
		return salesOrderName
	}
	return "Standalone"
}

// RecomputeBudget refreshes final cost, difference and budget status
func (t *TripRequest) RecomputeBudget() {
	final := decimal.NewFromFloat(t.OrganizerPlannedCost).Add(decimal.NewFromFloat(t.ExpenseTotal))
	diff := decimal.NewFromFloat(t.ManagerMaxBudget).Sub(final)

	t.FinalTotalCost = final.InexactFloat64()
	t.BudgetDifference = diff.Round(2).InexactFloat64()
	t.BudgetStatus = ClassifyBudget(diff)
}

// ClassifyBudget maps a budget minus final cost difference to a status
func ClassifyBudget(diff decimal.Decimal) BudgetStatus {
	switch {
	case diff.Abs().LessThan(budgetEpsilon):
		return BudgetOn
	case diff.IsNegative():
		return BudgetOver
	default:
		return BudgetUnder
	}
}

// IsOwner reports whether the user created the trip
func (t *TripRequest) IsOwner(userID int64) bool {
	return userID != 0 && t.EmployeeID == userID
}

// HasRequiredDetails reports whether the trip carries what a manager needs to review it
func (t *TripRequest) HasRequiredDetails() bool {
	if t.Data == nil || t.Purpose == "" {
		return false
	}
	return t.Data.Destination != "" && t.Data.TravelStartDate != nil && t.Data.TravelEndDate != nil
}
