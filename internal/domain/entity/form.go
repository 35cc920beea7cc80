package entity

import "time"

// Form states
const (
	FormStatePending   = "PENDING"
	FormStateSubmitted = "SUBMITTED"
)

// Form is the submitted-form record a trip's dynamic form posts into
type Form struct {
	ID             int64      `json:"id"`
	UUID           string     `json:"uuid"`
	TripID         int64      `json:"trip_id"`
	Title          string     `json:"title"`
	State          string     `json:"state"`
	SubmissionData string     `json:"submission_data,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
