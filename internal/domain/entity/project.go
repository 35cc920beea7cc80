package entity

import "time"

// Project groups the tasks of trips raised for one sales order or employee
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Task tracks the organization work of one trip
type Task struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	TripID      int64     `json:"trip_id"`
	Name        string    `json:"name"`
	AssigneeID  int64     `json:"assignee_id"`
	FollowerIDs []int64   `json:"follower_ids"`
	CreatedAt   time.Time `json:"created_at"`
}
