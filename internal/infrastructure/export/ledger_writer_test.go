package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/garyjia/business-trip/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestLedgerWriter_Write(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	itemDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := []port.LedgerRow{
		{
			Trip: &entity.TripRequest{
				ID:                   1,
				Name:                 "Trip for SO S00042",
				Status:               workflow.StateCompleted,
				Currency:             "EUR",
				ManagerMaxBudget:     1000,
				OrganizerPlannedCost: 600,
				ExpenseTotal:         600,
				FinalTotalCost:       1200,
				BudgetDifference:     -200,
				BudgetStatus:         entity.BudgetOver,
				Data: &entity.TripData{
					Destination:     "Berlin",
					TravelStartDate: &start,
					TravelEndDate:   &end,
				},
			},
			Employee:  "Alice",
			Manager:   "Bob",
			Organizer: "Olga",
			PlanItems: []entity.PlanLineItem{
				{ItemType: entity.ItemTransportTrain, ItemDate: &itemDate, Cost: 250, Direction: entity.DirectionOutbound},
				{ItemType: entity.ItemCustom, CustomType: "Lounge", Cost: 350},
			},
		},
		{
			Trip:     &entity.TripRequest{ID: 2, Name: "Trip for Carl on 2024-05-10", Status: workflow.StateDraft, Currency: "EUR"},
			Employee: "Carl",
		},
	}

	out, err := NewLedgerWriter(zap.NewNop()).Write(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{tripsSheet, itemsSheet}, f.GetSheetList())

	trips, err := f.GetRows(tripsSheet)
	require.NoError(t, err)
	require.Len(t, trips, 3)
	assert.Equal(t, "ID", trips[0][0])
	assert.Equal(t, "Trip for SO S00042", trips[1][1])
	assert.Equal(t, "completed", trips[1][2])
	assert.Equal(t, "Olga", trips[1][5])
	assert.Equal(t, "Berlin", trips[1][6])
	assert.Equal(t, "2024-06-01", trips[1][7])
	assert.Equal(t, "-200", trips[1][14])
	assert.Equal(t, "over_budget", trips[1][15])
	assert.Equal(t, "Carl", trips[2][3])

	items, err := f.GetRows(itemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "transport_train", items[1][2])
	assert.Equal(t, "outbound", items[1][3])
	assert.Equal(t, "2024-06-01", items[1][5])
	assert.Equal(t, "250", items[1][8])
	assert.Equal(t, "Lounge", items[2][2])
}

func TestLedgerWriter_Empty(t *testing.T) {
	out, err := NewLedgerWriter(zap.NewNop()).Write(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	trips, err := f.GetRows(tripsSheet)
	require.NoError(t, err)
	assert.Len(t, trips, 1, "header only")
}
