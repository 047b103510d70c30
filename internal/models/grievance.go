package models

import (
	"strings"
	"time"
)

// GrievanceStatus represents the lifecycle state of a grievance.
type GrievanceStatus string

const (
	GrievanceStatusNew        GrievanceStatus = "new"
	GrievanceStatusInProgress GrievanceStatus = "in_progress"
	GrievanceStatusOnHold     GrievanceStatus = "on_hold"
	GrievanceStatusResolved   GrievanceStatus = "resolved"
	GrievanceStatusClosed     GrievanceStatus = "closed"
	GrievanceStatusRejected   GrievanceStatus = "rejected"
)

// AllGrievanceStatuses lists every status in lifecycle order.
var AllGrievanceStatuses = []GrievanceStatus{
	GrievanceStatusNew,
	GrievanceStatusInProgress,
	GrievanceStatusOnHold,
	GrievanceStatusResolved,
	GrievanceStatusClosed,
	GrievanceStatusRejected,
}

// StatusTransitions defines every status reachable from a given status by any
// workflow action. Terminal statuses have no entry.
var StatusTransitions = map[GrievanceStatus][]GrievanceStatus{
	GrievanceStatusNew:        {GrievanceStatusInProgress, GrievanceStatusRejected, GrievanceStatusOnHold},
	GrievanceStatusInProgress: AllGrievanceStatuses,
	GrievanceStatusOnHold:     AllGrievanceStatuses,
	GrievanceStatusResolved:   {GrievanceStatusClosed, GrievanceStatusOnHold},
}

// ParseGrievanceStatus matches a status token case-insensitively.
func ParseGrievanceStatus(token string) (GrievanceStatus, bool) {
	normalized := GrievanceStatus(strings.ToLower(strings.TrimSpace(token)))
	for _, s := range AllGrievanceStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// CanTransitionTo returns true if the transition from current status to target is valid.
func (s GrievanceStatus) CanTransitionTo(target GrievanceStatus) bool {
	validTargets, ok := StatusTransitions[s]
	if !ok {
		return false
	}
	for _, valid := range validTargets {
		if valid == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s GrievanceStatus) IsTerminal() bool {
	return s == GrievanceStatusClosed || s == GrievanceStatusRejected
}

// Priority ranks how urgently a grievance should be handled.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority matches a priority token case-insensitively.
func ParsePriority(token string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(token))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, true
	}
	return "", false
}

// Grievance is a citizen-filed complaint tracked through its lifecycle.
type Grievance struct {
	ID              string          `db:"id" json:"id"`
	ComplaintCode   string          `db:"complaint_code" json:"complaint_id"`
	CitizenID       string          `db:"citizen_id" json:"citizen_id"`
	SubjectID       string          `db:"subject_id" json:"subject_id"`
	AreaID          string          `db:"area_id" json:"area_id"`
	CategoryID      *string         `db:"category_id" json:"category_id,omitempty"`
	Title           string          `db:"title" json:"title"`
	Description     string          `db:"description" json:"description"`
	Address         *string         `db:"address" json:"address,omitempty"`
	Latitude        *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64        `db:"longitude" json:"longitude,omitempty"`
	WardNumber      *string         `db:"ward_number" json:"ward_number,omitempty"`
	Status          GrievanceStatus `db:"status" json:"status"`
	Priority        Priority        `db:"priority" json:"priority"`
	EscalationLevel int             `db:"escalation_level" json:"escalation_level"`
	AssignedTo      *string         `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedBy      *string         `db:"assigned_by" json:"assigned_by,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ResolvedAt      *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	FeedbackRating  *int            `db:"feedback_rating" json:"feedback_rating,omitempty"`
	FeedbackText    *string         `db:"feedback_text" json:"feedback_text,omitempty"`
	Version         int             `db:"version" json:"version"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// IsOwnedBy reports whether userID filed the grievance.
func (g *Grievance) IsOwnedBy(userID string) bool {
	return g != nil && g.CitizenID == userID
}

// IsAssignedTo reports whether userID is the current assignee.
func (g *Grievance) IsAssignedTo(userID string) bool {
	return g != nil && g.AssignedTo != nil && *g.AssignedTo == userID
}

// GrievanceFilter captures listing criteria.
type GrievanceFilter struct {
	CitizenID    string
	AssignedTo   string
	AreaID       string
	Status       *GrievanceStatus
	Priority     *Priority
	CreatedSince *time.Time
	Page         int
	PageSize     int
}

// EscalationResult reports the outcome of an escalation attempt. Reaching the
// configured maximum is reported here rather than as an error.
type EscalationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Level   int    `json:"level"`
}

var escalationTiers = []string{"Assigned Staff", "Member Head", "Admin", "Super Admin"}

// EscalationTierName names the authority handling a given escalation level.
func EscalationTierName(level int) string {
	if level >= 0 && level < len(escalationTiers) {
		return escalationTiers[level]
	}
	return "higher authority"
}

// GrievanceComment is a plain-text note on a grievance thread.
type GrievanceComment struct {
	ID          string    `db:"id" json:"id"`
	GrievanceID string    `db:"grievance_id" json:"grievance_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Comment     string    `db:"comment_text" json:"comment_text"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
