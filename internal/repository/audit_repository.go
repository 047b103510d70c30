package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

// AuditRepository appends and reads audit trail entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an entry. Pass the workflow transaction so the entry commits
// or rolls back together with the change it records.
func (r *AuditRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	var details interface{}
	if len(entry.Details) > 0 {
		details = []byte(entry.Details)
	}
	target := exec
	if target == nil {
		target = r.db
	}
	const query = `INSERT INTO audit_logs (id, action, action_type, performed_by, grievance_id, details, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := target.ExecContext(ctx, query,
		entry.ID, entry.Action, entry.ActionType, entry.PerformedBy, entry.GrievanceID, details, entry.Timestamp,
	); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns entries newest first with the total count.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.GrievanceID != "" {
		args = append(args, filter.GrievanceID)
		conditions = append(conditions, fmt.Sprintf("grievance_id = $%d", len(args)))
	}
	if filter.PerformedBy != "" {
		args = append(args, filter.PerformedBy)
		conditions = append(conditions, fmt.Sprintf("performed_by = $%d", len(args)))
	}
	if filter.ActionType != "" {
		args = append(args, filter.ActionType)
		conditions = append(conditions, fmt.Sprintf("action_type = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	if size > 200 {
		size = 200
	}
	query := fmt.Sprintf(`SELECT id, action, action_type, performed_by, grievance_id, details, timestamp
FROM audit_logs%s ORDER BY timestamp DESC LIMIT %d OFFSET %d`, where, size, (page-1)*size)

	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, total, nil
}
