package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction constants classify audit entries.
const (
	AuditActionGrievanceCreate    = "GRIEVANCE_CREATE"
	AuditActionGrievanceAccept    = "GRIEVANCE_ACCEPT"
	AuditActionGrievanceReject    = "GRIEVANCE_REJECT"
	AuditActionGrievanceStatus    = "GRIEVANCE_STATUS"
	AuditActionGrievanceClose     = "GRIEVANCE_CLOSE"
	AuditActionGrievanceAutoClose = "GRIEVANCE_AUTO_CLOSE"
	AuditActionGrievanceEscalate  = "GRIEVANCE_ESCALATE"
	AuditActionGrievanceReassign  = "GRIEVANCE_REASSIGN"
	AuditActionGrievanceFeedback  = "GRIEVANCE_FEEDBACK"
	AuditActionGrievanceComment   = "GRIEVANCE_COMMENT"
	AuditActionConfigUpdate       = "CONFIG_UPDATE"
)

// AuditLog represents an append-only audit trail record.
type AuditLog struct {
	ID          string         `db:"id" json:"id"`
	Action      string         `db:"action" json:"action"`
	ActionType  string         `db:"action_type" json:"action_type"`
	PerformedBy string         `db:"performed_by" json:"performed_by"`
	GrievanceID *string        `db:"grievance_id" json:"grievance_id,omitempty"`
	Details     types.JSONText `db:"details" json:"details,omitempty"`
	Timestamp   time.Time      `db:"timestamp" json:"timestamp"`
}

// AuditLogFilter narrows audit listings.
type AuditLogFilter struct {
	GrievanceID string
	PerformedBy string
	ActionType  string
	Page        int
	PageSize    int
}
