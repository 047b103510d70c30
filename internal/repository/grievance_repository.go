package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

const grievanceColumns = `id, complaint_code, citizen_id, subject_id, area_id, category_id, title, description,
       address, latitude, longitude, ward_number, status, priority, escalation_level, assigned_to, assigned_by,
       rejection_reason, resolved_at, feedback_rating, feedback_text, version, created_at, updated_at`

// ErrComplaintCodeTaken is returned when no unique complaint code could be stored.
var ErrComplaintCodeTaken = errors.New("complaint code already in use")

// GrievanceRepository persists grievances.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs the repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

func (r *GrievanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// complaintCodeAttempts bounds how many fresh codes Create tries before giving up.
const complaintCodeAttempts = 5

// NewComplaintCode derives a short public code from a fresh UUID.
func NewComplaintCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Create inserts a new grievance, filling identifiers and timestamps. A
// generated complaint code that collides with an existing one is replaced and
// the insert retried; ON CONFLICT keeps the surrounding transaction usable.
func (r *GrievanceRepository) Create(ctx context.Context, exec sqlx.ExtContext, g *models.Grievance) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	generated := g.ComplaintCode == ""
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = g.CreatedAt
	if g.Version == 0 {
		g.Version = 1
	}

	const query = `INSERT INTO grievances (id, complaint_code, citizen_id, subject_id, area_id, category_id, title, description,
       address, latitude, longitude, ward_number, status, priority, escalation_level, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (complaint_code) DO NOTHING`
	for attempt := 0; attempt < complaintCodeAttempts; attempt++ {
		if generated {
			g.ComplaintCode = NewComplaintCode()
		}
		result, err := r.exec(exec).ExecContext(ctx, query,
			g.ID, g.ComplaintCode, g.CitizenID, g.SubjectID, g.AreaID, g.CategoryID, g.Title, g.Description,
			g.Address, g.Latitude, g.Longitude, g.WardNumber, g.Status, g.Priority, g.EscalationLevel, g.Version,
			g.CreatedAt, g.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create grievance: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check grievance insert rows: %w", err)
		}
		if rows > 0 {
			return nil
		}
		if !generated {
			break
		}
	}
	return fmt.Errorf("create grievance: %w", ErrComplaintCodeTaken)
}

// FindByID fetches a grievance by identifier.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE id = $1`
	var g models.Grievance
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grievance: %w", err)
	}
	return &g, nil
}

// FindByIDForUpdate fetches a grievance and locks the row for the lifetime of
// the surrounding transaction.
func (r *GrievanceRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE id = $1 FOR UPDATE`
	var g models.Grievance
	if err := sqlx.GetContext(ctx, r.exec(exec), &g, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock grievance: %w", err)
	}
	return &g, nil
}

// FindByComplaintCode fetches a grievance by its public code.
func (r *GrievanceRepository) FindByComplaintCode(ctx context.Context, code string) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE complaint_code = $1`
	var g models.Grievance
	if err := r.db.GetContext(ctx, &g, query, strings.ToUpper(code)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grievance by code: %w", err)
	}
	return &g, nil
}

// Update persists the mutable workflow columns. The write only applies when
// the stored version still matches g.Version; otherwise sql.ErrNoRows is
// returned. On success g.Version is advanced.
func (r *GrievanceRepository) Update(ctx context.Context, exec sqlx.ExtContext, g *models.Grievance) error {
	g.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grievances SET status = $1, priority = $2, escalation_level = $3, assigned_to = $4,
       assigned_by = $5, rejection_reason = $6, resolved_at = $7, feedback_rating = $8, feedback_text = $9,
       updated_at = $10, version = version + 1
WHERE id = $11 AND version = $12`
	result, err := r.exec(exec).ExecContext(ctx, query,
		g.Status, g.Priority, g.EscalationLevel, g.AssignedTo, g.AssignedBy, g.RejectionReason, g.ResolvedAt,
		g.FeedbackRating, g.FeedbackText, g.UpdatedAt, g.ID, g.Version,
	)
	if err != nil {
		return fmt.Errorf("update grievance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check grievance update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	g.Version++
	return nil
}

// List returns grievances matching the filter with the total count, newest first.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if filter.CitizenID != "" {
		args = append(args, filter.CitizenID)
		conditions = append(conditions, fmt.Sprintf("citizen_id = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.AreaID != "" {
		args = append(args, filter.AreaID)
		conditions = append(conditions, fmt.Sprintf("area_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.CreatedSince != nil {
		args = append(args, *filter.CreatedSince)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grievances"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM grievances%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		grievanceColumns, where, size, (page-1)*size)

	var grievances []models.Grievance
	if err := r.db.SelectContext(ctx, &grievances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	return grievances, total, nil
}

// ListSLABreached returns ids of resolved grievances whose resolution is older
// than cutoff, oldest first.
func (r *GrievanceRepository) ListSLABreached(ctx context.Context, cutoff time.Time, limit, offset int) ([]string, error) {
	const query = `SELECT id FROM grievances
WHERE status = $1 AND resolved_at IS NOT NULL AND resolved_at < $2
ORDER BY resolved_at ASC, id ASC LIMIT $3 OFFSET $4`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.GrievanceStatusResolved, cutoff, limit, offset); err != nil {
		return nil, fmt.Errorf("list sla breached grievances: %w", err)
	}
	return ids, nil
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
