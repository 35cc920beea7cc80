package entity

// Group names used for authorization decisions
const (
	GroupAdmin     = "admin"
	GroupFinance   = "finance"
	GroupOrganizer = "trip_organizer"
	GroupHR        = "hr"
)

// User is a caller of the workflow
type User struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	LarkOpenID string   `json:"lark_open_id,omitempty"`
	ManagerID  int64    `json:"manager_id,omitempty"`
	Groups     []string `json:"groups"`
}

// HasGroup reports group membership
func (u *User) HasGroup(group string) bool {
	if u == nil {
		return false
	}
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user belongs to the admin group
func (u *User) IsAdmin() bool {
	return u.HasGroup(GroupAdmin)
}

// RoleFlags are the caller's roles relative to one trip
type RoleFlags struct {
	IsOwner     bool `json:"is_owner"`
	IsManager   bool `json:"is_manager"`
	IsOrganizer bool `json:"is_organizer"`
	IsFinance   bool `json:"is_finance"`
	CanSeeCosts bool `json:"can_see_costs"`
}

// ComputeRoleFlags derives the caller's roles; admins hold every role
func ComputeRoleFlags(user *User, trip *TripRequest) RoleFlags {
	if user == nil {
		return RoleFlags{}
	}

	flags := RoleFlags{}
	if trip != nil {
		flags.IsOwner = trip.IsOwner(user.ID)
	}

	if user.IsAdmin() {
		flags.IsManager = true
		flags.IsOrganizer = true
		flags.IsFinance = true
		flags.CanSeeCosts = true
		return flags
	}

	if trip != nil {
		flags.IsManager = trip.ManagerID != 0 && trip.ManagerID == user.ID
		flags.IsOrganizer = trip.OrganizerID != 0 && trip.OrganizerID == user.ID
	}
	flags.IsFinance = flags.IsOrganizer || user.HasGroup(GroupFinance)
	flags.CanSeeCosts = flags.IsManager || flags.IsOrganizer || user.HasGroup(GroupOrganizer)
	return flags
}
