package submission

import (
	"testing"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldTable_WellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Fields() {
		assert.NotEmpty(t, f.Name)
		assert.False(t, seen[f.Name], "duplicate field %s", f.Name)
		seen[f.Name] = true
		assert.NotEmpty(t, f.Root, "field %s has no root keys", f.Name)
		assert.NotEmpty(t, f.Nested, "field %s has no nested keys", f.Name)
		require.NotNil(t, f.target, "field %s has no target", f.Name)
	}
}

func TestFieldTable_GroupsFollowToggles(t *testing.T) {
	for _, f := range Fields() {
		if f.Group == GroupAlways {
			continue
		}
		assert.False(t, groupEnabled(f.Group, &entity.TripData{}), "group %s enabled on empty data", f.Group)
	}

	d := &entity.TripData{UseTrain: true, AccommodationNeeded: "Yes"}
	assert.True(t, groupEnabled(GroupTrain, d))
	assert.True(t, groupEnabled(GroupAccommodation, d))
	assert.False(t, groupEnabled(GroupReturnTrain, d))
}

func TestFieldTable_EveryFieldRoundTripsThroughProcess(t *testing.T) {
	sample := map[Kind]interface{}{
		KindString: "value",
		KindBool:   true,
		KindInt:    float64(2),
		KindFloat:  "1.5",
		KindDate:   "2024-05-01",
	}

	root := map[string]interface{}{
		"means_of_transport":        map[string]interface{}{"train": true, "airplane": true, "bus": true, "rental_car": true},
		"return_means_of_transport": map[string]interface{}{"train": true, "airplane": true, "bus": true, "rental_car": true},
	}
	for _, f := range Fields() {
		if _, taken := root[f.Root[0]]; taken {
			continue
		}
		root[f.Root[0]] = sample[f.Kind()]
	}
	root["accommodation_needed"] = "yes"

	res, ok := newTestExtractor().Process(NewPayload(root))
	require.True(t, ok)

	for _, f := range Fields() {
		probe := *res.Data
		f.target.reset(&probe)
		assert.NotEqual(t, *res.Data, probe, "field %s was not populated", f.Name)
	}
}
