package dto

// AuditLogQuery mirrors supported audit listing filters.
type AuditLogQuery struct {
	GrievanceID string
	PerformedBy string
	ActionType  string
	Page        int
	PageSize    int
}
