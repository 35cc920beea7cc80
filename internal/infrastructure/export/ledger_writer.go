package export

import (
	"fmt"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	tripsSheet = "Trips"
	itemsSheet = "Plan Items"
	dateFormat = "2006-01-02"
)

var tripHeader = []interface{}{
	"ID", "Name", "Status", "Employee", "Manager", "Organizer", "Destination",
	"Start", "End", "Currency", "Max Budget", "Planned Cost", "Expenses",
	"Final Cost", "Difference", "Budget Status", "Expense Approved",
}

var itemHeader = []interface{}{
	"Trip ID", "Trip", "Type", "Direction", "Description", "Date",
	"From", "To", "Cost", "Cost Status", "Payment", "Reimbursable",
}

// LedgerWriter renders the finance ledger as an xlsx workbook
type LedgerWriter struct {
	logger *zap.Logger
}

// NewLedgerWriter creates a new LedgerWriter
func NewLedgerWriter(logger *zap.Logger) *LedgerWriter {
	return &LedgerWriter{logger: logger}
}

// Write returns the workbook bytes: one row per trip, one row per plan item
func (w *LedgerWriter) Write(rows []port.LedgerRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tripsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := f.SetSheetRow(tripsSheet, "A1", &tripHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetSheetRow(itemsSheet, "A1", &itemHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	itemRow := 2
	for i, r := range rows {
		t := r.Trip
		var destination string
		var start, end *time.Time
		if t.Data != nil {
			destination = t.Data.Destination
			start, end = t.Data.TravelStartDate, t.Data.TravelEndDate
		}

		values := []interface{}{
			t.ID, t.Name, string(t.Status), r.Employee, r.Manager, r.Organizer, destination,
			formatDate(start), formatDate(end), t.Currency, t.ManagerMaxBudget, t.OrganizerPlannedCost,
			t.ExpenseTotal, t.FinalTotalCost, t.BudgetDifference, string(t.BudgetStatus),
			formatDate(t.ExpenseApprovalDate),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(tripsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write trip %d: %w", t.ID, err)
		}

		for _, item := range r.PlanItems {
			itemType := string(item.ItemType)
			if item.CustomType != "" {
				itemType = item.CustomType
			}
			values := []interface{}{
				t.ID, t.Name, itemType, string(item.Direction), item.Description, formatDate(item.ItemDate),
				item.FromLocation, item.ToLocation, item.Cost, string(item.CostStatus),
				string(item.PaymentMethod), item.IsReimbursable,
			}
			cell, err := excelize.CoordinatesToCellName(1, itemRow)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(itemsSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write plan item of trip %d: %w", t.ID, err)
			}
			itemRow++
		}
	}

	for _, sheet := range []string{tripsSheet, itemsSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			w.logger.Warn("Failed to freeze header row", zap.String("sheet", sheet), zap.Error(err))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Ledger workbook rendered",
		zap.Int("trips", len(rows)),
		zap.Int("plan_items", itemRow-2))
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateFormat)
}

// Verify interface compliance
var _ port.LedgerWriter = (*LedgerWriter)(nil)
