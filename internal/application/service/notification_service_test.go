package service

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewedTrip() *entity.TripRequest {
	return &entity.TripRequest{
		ID:          1,
		Name:        "Trip for SO S00042",
		EmployeeID:  employee.ID,
		ManagerID:   manager.ID,
		OrganizerID: organizer.ID,
	}
}

func TestPostConfidential_DefaultRecipients(t *testing.T) {
	e := newEnv()

	err := e.notifications.PostConfidential(context.Background(), reviewedTrip(), organizer.ID, "<p>Budget: 500</p>")
	require.NoError(t, err)

	require.Len(t, e.messages.messages, 1)
	msg := e.messages.messages[0]
	assert.Equal(t, entity.VisibilityConfidential, msg.Visibility)
	assert.Equal(t, []int64{manager.ID, organizer.ID}, msg.RecipientIDs)
	assert.Equal(t, 1, e.notifier.delivered[manager.ID], "manager is notified")
	assert.Zero(t, e.notifier.delivered[organizer.ID], "the author is not notified of their own message")
}

func TestPostConfidential_Dedupe(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	trip := reviewedTrip()

	require.NoError(t, e.notifications.PostConfidential(ctx, trip, manager.ID, "<p>Budget: <b>500</b></p>"))

	e.advance(2 * time.Minute)
	require.NoError(t, e.notifications.PostConfidential(ctx, trip, manager.ID, "<div>Budget: 500</div>"))
	assert.Len(t, e.messages.messages, 1, "same text within the window is skipped")

	require.NoError(t, e.notifications.PostConfidential(ctx, trip, manager.ID, "<p>Budget: 600</p>"))
	assert.Len(t, e.messages.messages, 2, "different text is posted")

	e.advance(10 * time.Minute)
	require.NoError(t, e.notifications.PostConfidential(ctx, trip, manager.ID, "<p>Budget: 500</p>"))
	assert.Len(t, e.messages.messages, 3, "same text after the window is posted")
}

func TestPostPublic_NeverDeduplicated(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	trip := reviewedTrip()

	require.NoError(t, e.notifications.PostPublic(ctx, trip, manager.ID, "<p>Hello</p>", employee.ID))
	require.NoError(t, e.notifications.PostPublic(ctx, trip, manager.ID, "<p>Hello</p>", employee.ID, employee.ID))

	assert.Len(t, e.messages.messages, 2)
	assert.Equal(t, []int64{employee.ID}, e.messages.messages[1].RecipientIDs)
	assert.Equal(t, 2, e.notifier.delivered[employee.ID])
}

func TestPost_StoreFailureIsReturned(t *testing.T) {
	e := newEnv()
	e.messages.createErr = errStore

	err := e.notifications.PostPublic(context.Background(), reviewedTrip(), manager.ID, "<p>Hi</p>", employee.ID)
	assert.ErrorIs(t, err, errStore)
	assert.Empty(t, e.notifier.delivered)
}

func TestMessages_Visibility(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	trip := reviewedTrip()

	require.NoError(t, e.notifications.PostPublic(ctx, trip, manager.ID, "<p>Approved</p>", employee.ID))
	require.NoError(t, e.notifications.PostConfidential(ctx, trip, manager.ID, "<p>Budget 500</p>", organizer.ID))

	tests := []struct {
		name   string
		viewer *entity.User
		want   int
	}{
		{"employee sees public only", employee, 1},
		{"recipient sees both", organizer, 2},
		{"author sees both", manager, 2},
		{"admin sees both", admin, 2},
		{"finance outside the recipients", finance, 1},
		{"anonymous", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := e.notifications.Messages(ctx, trip.ID, tt.viewer)
			require.NoError(t, err)
			assert.Len(t, msgs, tt.want)
		})
	}
}

func TestPost_RecordsDeliveryOutcome(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	trip := reviewedTrip()

	require.NoError(t, e.notifications.PostPublic(ctx, trip, manager.ID, "<p>Approved</p>", employee.ID))

	e.notifier.NotifyFunc = func(ctx context.Context, recipient *entity.User, msg *entity.Message) error {
		return errStore
	}
	require.NoError(t, e.notifications.PostPublic(ctx, trip, manager.ID, "<p>Approved again</p>", employee.ID))

	require.Len(t, e.messages.deliveries, 2)
	assert.Equal(t, entity.DeliverySent, e.messages.deliveries[0].Status)
	assert.NotNil(t, e.messages.deliveries[0].SentAt)
	assert.Equal(t, entity.DeliveryFailed, e.messages.deliveries[1].Status)
	assert.Equal(t, errStore.Error(), e.messages.deliveries[1].Error)
	assert.Contains(t, e.logger.warns, "Message delivery failed")
}
