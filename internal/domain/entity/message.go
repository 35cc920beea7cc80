package entity

import "time"

// Visibility controls who may read a chatter message
type Visibility string

const (
	// VisibilityPublic messages reach every follower of the trip
	VisibilityPublic Visibility = "public"
	// VisibilityConfidential messages reach only the listed recipients
	VisibilityConfidential Visibility = "confidential"
)

// Message is a chatter entry posted on a trip
type Message struct {
	ID           int64      `json:"id"`
	TripID       int64      `json:"trip_id"`
	AuthorID     int64      `json:"author_id"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	Visibility   Visibility `json:"visibility"`
	RecipientIDs []int64    `json:"recipient_ids"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Delivery statuses of a message to one recipient
const (
	DeliveryPending = "PENDING"
	DeliverySent    = "SENT"
	DeliveryFailed  = "FAILED"
)

// Delivery is the outcome of pushing one message to one recipient
type Delivery struct {
	ID          int64      `json:"id"`
	MessageID   int64      `json:"message_id"`
	RecipientID int64      `json:"recipient_id"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
