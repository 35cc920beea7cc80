package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRoleFlags(t *testing.T) {
	trip := &TripRequest{EmployeeID: 1, ManagerID: 2, OrganizerID: 3}

	tests := []struct {
		name     string
		user     *User
		expected RoleFlags
	}{
		{"admin sees everything", &User{ID: 9, Groups: []string{GroupAdmin}},
			RoleFlags{IsManager: true, IsOrganizer: true, IsFinance: true, CanSeeCosts: true}},
		{"owner", &User{ID: 1}, RoleFlags{IsOwner: true}},
		{"manager", &User{ID: 2}, RoleFlags{IsManager: true, CanSeeCosts: true}},
		{"organizer counts as finance", &User{ID: 3},
			RoleFlags{IsOrganizer: true, IsFinance: true, CanSeeCosts: true}},
		{"finance group", &User{ID: 4, Groups: []string{GroupFinance}}, RoleFlags{IsFinance: true}},
		{"organizer group sees costs", &User{ID: 5, Groups: []string{GroupOrganizer}}, RoleFlags{CanSeeCosts: true}},
		{"nobody", nil, RoleFlags{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeRoleFlags(tt.user, trip))
		})
	}
}

func TestComputeRoleFlags_UnassignedTrip(t *testing.T) {
	flags := ComputeRoleFlags(&User{ID: 0}, &TripRequest{})
	assert.False(t, flags.IsManager)
	assert.False(t, flags.IsOrganizer)
}
