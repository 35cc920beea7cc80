package entity

import "time"

// StatusHistory is one entry of a trip's status audit trail
type StatusHistory struct {
	ID             int64     `json:"id"`
	TripID         int64     `json:"trip_id"`
	ActorID        int64     `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Note           string    `json:"note,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
