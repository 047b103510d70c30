package models

import "time"

// Notification is a message for a single recipient produced by a workflow action.
type Notification struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	GrievanceID string    `json:"grievance_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
