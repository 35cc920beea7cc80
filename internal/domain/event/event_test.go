package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	assert.True(t, TypeSubmittedToManager.IsValid())
	assert.True(t, TypeSubmissionProcessed.IsValid())
	assert.False(t, Type("instance.created").IsValid())
	assert.False(t, Type("").IsValid())
	assert.Equal(t, "trip.expenses_approved", TypeExpensesApproved.String())
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeTripCreated, 42, 7, map[string]interface{}{"name": "Trip for SO S1"})

	require.NotNil(t, evt)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, int64(42), evt.TripID)
	assert.Equal(t, int64(7), evt.ActorID)
	assert.False(t, evt.Timestamp.Before(before))

	other := NewEvent(TypeTripCreated, 42, 7, nil)
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestFollowKeepsCorrelation(t *testing.T) {
	root := NewEvent(TypeExpensesApproved, 5, 3, nil)
	next := root.Follow(TypeStatusChanged, map[string]interface{}{"new_status": "completed"})

	assert.NotEqual(t, root.ID, next.ID)
	assert.Equal(t, root.CorrelationID, next.CorrelationID)
	assert.Equal(t, root.TripID, next.TripID)
	assert.Equal(t, TypeStatusChanged, next.Type)
}

func TestWithPayloadDoesNotMutate(t *testing.T) {
	evt := NewEvent(TypeTripRejected, 1, 2, map[string]interface{}{"reason": "timing"})
	updated := evt.WithPayload("comment", "too late")

	assert.Equal(t, "too late", updated.GetPayloadString("comment"))
	assert.Equal(t, "", evt.GetPayloadString("comment"))
	assert.Equal(t, "timing", updated.GetPayloadString("reason"))
	assert.Equal(t, evt.ID, updated.ID)
}

func TestPayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeExpensesSubmitted, 1, 1, map[string]interface{}{
		"resubmission": true,
		"total":        150.5,
		"count":        3,
		"wide":         int64(9),
		"as_float":     float64(4),
		"name":         "x",
	})

	assert.True(t, evt.GetPayloadBool("resubmission"))
	assert.False(t, evt.GetPayloadBool("name"))
	assert.Equal(t, 150.5, evt.GetPayloadFloat("total"))
	assert.Equal(t, 3.0, evt.GetPayloadFloat("count"))
	assert.Equal(t, int64(3), evt.GetPayloadInt("count"))
	assert.Equal(t, int64(9), evt.GetPayloadInt("wide"))
	assert.Equal(t, int64(4), evt.GetPayloadInt("as_float"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("missing"))
	assert.Equal(t, "", evt.GetPayloadString("total"))
}
