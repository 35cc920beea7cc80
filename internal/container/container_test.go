package container

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/business-trip/internal/application/service"
	"github.com/garyjia/business-trip/internal/config"
	"github.com/garyjia/business-trip/internal/domain/entity"
	httpapi "github.com/garyjia/business-trip/internal/interfaces/http"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 18080, Mode: "test", ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "trips.db"), MaxOpenConns: 1},
		Storage:  config.StorageConfig{BaseDir: filepath.Join(dir, "documents")},
		Workflow: config.WorkflowConfig{
			AdminUserID:     5,
			CompanyCurrency: "EUR",
			Currencies:      []string{"EUR", "USD"},
			ProjectName:     "Business Trips",
		},
		Users: []config.UserConfig{
			{ID: 1, Name: "Emma", ManagerID: 2},
			{ID: 2, Name: "Mark", Groups: []string{entity.GroupFinance}},
			{ID: 5, Name: "Ada", Groups: []string{entity.GroupAdmin}},
			{ID: 6, Name: "Stan"},
		},
	}
}

func TestNewContainer_RequiresConfigAndLogger(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Workflow.AdminUserID = 0
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_StartSeedsUsersAndWiresServices(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start is refused")

	user, err := c.Repositories().Users.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Mark", user.Name)
	assert.True(t, user.HasGroup(entity.GroupFinance))

	services := c.Services()
	require.NotNil(t, services)
	assert.NotNil(t, services.Trip)
	assert.NotNil(t, services.Submission)
	assert.NotNil(t, services.Ledger)
	assert.NotNil(t, c.Server())

	emma, err := c.Repositories().Users.GetByID(ctx, 1)
	require.NoError(t, err)
	trip, err := services.Trip.Create(ctx, emma, service.CreateTripInput{})
	require.NoError(t, err)
	assert.Equal(t, "EUR", trip.Currency)

	health := c.Health(ctx)
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "lark disabled, logging only", health.Components["notifier"].Message)
}

func TestContainer_DocumentsOnlyReachTripRoles(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	emma, err := c.Repositories().Users.GetByID(ctx, 1)
	require.NoError(t, err)
	trip, err := c.Services().Trip.Create(ctx, emma, service.CreateTripInput{})
	require.NoError(t, err)

	ok, err := c.Services().Submission.Process(ctx, trip.FormUUID, []byte(`{
		"trip_destination_portal_query_params": "Berlin",
		"means_of_transport": {"rental_car": true},
		"drivers_license_file": [{"storage": "base64", "name": "license.png", "base64": "aGVsbG8="}],
		"submit": true
	}`))
	require.NoError(t, err)
	require.True(t, ok)

	data, err := c.Repositories().TripData.GetByTripID(ctx, trip.ID)
	require.NoError(t, err)
	require.NotNil(t, data)
	url := entity.ContentURL(entity.ModelTripData, data.ID, entity.FieldRentalCarDriversLicense, "license.png")

	get := func(actorID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set(httpapi.ActorHeader, actorID)
		w := httptest.NewRecorder()
		c.Server().Router().ServeHTTP(w, req)
		return w
	}

	w := get("1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())

	assert.Equal(t, http.StatusOK, get("2").Code, "finance")
	assert.Equal(t, http.StatusForbidden, get("6").Code)
}

func TestContainer_Close(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("trip_id", int64(7), 42, "skipped", "error", errors.New("boom"), "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "trip_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
