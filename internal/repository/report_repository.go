package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

// ReportRepository runs read-only KPI aggregations over grievances.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// sinceClause renders the creation-window predicate using the next free
// placeholder after existing args.
func sinceClause(filter models.KPIFilter, column, keyword string, args []interface{}) (string, []interface{}) {
	if filter.Since == nil {
		return "", args
	}
	args = append(args, *filter.Since)
	return fmt.Sprintf(" %s %s >= $%d", keyword, column, len(args)), args
}

// ResolutionCounts returns the total and closed grievance counts.
func (r *ReportRepository) ResolutionCounts(ctx context.Context, filter models.KPIFilter) (*models.ResolutionRate, error) {
	where, args := sinceClause(filter, "created_at", "WHERE", nil)
	query := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'closed') AS closed FROM grievances` + where
	var result models.ResolutionRate
	if err := r.db.GetContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("resolution counts: %w", err)
	}
	return &result, nil
}

// PendingAging returns the number of non-terminal grievances and their
// average age in days at now.
func (r *ReportRepository) PendingAging(ctx context.Context, filter models.KPIFilter, now time.Time) (*models.PendingAging, error) {
	where, args := sinceClause(filter, "created_at", "AND", []interface{}{now})
	query := `SELECT COUNT(*) AS pending,
       COALESCE(AVG(EXTRACT(EPOCH FROM ($1 - created_at)) / 86400), 0) AS avg_age_days
FROM grievances WHERE status NOT IN ('closed', 'rejected')` + where
	var result models.PendingAging
	if err := r.db.GetContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("pending aging: %w", err)
	}
	return &result, nil
}

// SLACompliance counts closed grievances and how many closed within slaDays
// of creation. The last update of a closed grievance is its closure time.
func (r *ReportRepository) SLACompliance(ctx context.Context, filter models.KPIFilter, slaDays int) (*models.SLACompliance, error) {
	where, args := sinceClause(filter, "created_at", "AND", []interface{}{slaDays})
	query := `SELECT COUNT(*) AS closed,
       COUNT(*) FILTER (WHERE updated_at - created_at <= make_interval(days => $1)) AS within_sla,
       COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 86400), 0) AS avg_resolution_days
FROM grievances WHERE status = 'closed'` + where
	var result models.SLACompliance
	if err := r.db.GetContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("sla compliance: %w", err)
	}
	result.SLADays = slaDays
	return &result, nil
}

// StatusCounts returns grievance counts for statuses that have rows.
func (r *ReportRepository) StatusCounts(ctx context.Context, filter models.KPIFilter) ([]models.StatusCount, error) {
	where, args := sinceClause(filter, "created_at", "WHERE", nil)
	query := `SELECT status, COUNT(*) AS count FROM grievances` + where + ` GROUP BY status`
	var result []models.StatusCount
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	return result, nil
}

// AreaDistribution returns grievance counts per area, busiest first.
func (r *ReportRepository) AreaDistribution(ctx context.Context, filter models.KPIFilter) ([]models.AreaCount, error) {
	where, args := sinceClause(filter, "created_at", "WHERE", nil)
	query := `SELECT area_id, COUNT(*) AS count FROM grievances` + where + ` GROUP BY area_id ORDER BY count DESC, area_id ASC`
	var result []models.AreaCount
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("area distribution: %w", err)
	}
	return result, nil
}

// StaffPerformance aggregates assignment outcomes per field staff member,
// including staff with no assignments.
func (r *ReportRepository) StaffPerformance(ctx context.Context, filter models.KPIFilter) ([]models.StaffPerformance, error) {
	join, args := sinceClause(filter, "g.created_at", "AND", []interface{}{models.RoleFieldStaff})
	query := `SELECT u.id AS staff_id, u.name AS name,
       COUNT(g.id) AS assigned,
       COUNT(g.id) FILTER (WHERE g.status = 'closed') AS resolved,
       COALESCE(AVG(EXTRACT(EPOCH FROM (g.resolved_at - g.created_at)) / 3600) FILTER (WHERE g.resolved_at IS NOT NULL), 0) AS avg_resolution_hours,
       COALESCE(AVG(g.feedback_rating), 0) AS avg_feedback_rating
FROM users u
LEFT JOIN grievances g ON g.assigned_to = u.id` + join + `
WHERE u.role = $1
GROUP BY u.id, u.name
ORDER BY u.name ASC`
	var result []models.StaffPerformance
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("staff performance: %w", err)
	}
	return result, nil
}

// ComplaintTotals counts grievances created in trailing windows ending at now.
func (r *ReportRepository) ComplaintTotals(ctx context.Context, now time.Time) (*models.ComplaintTotals, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE created_at >= $1) AS day,
       COUNT(*) FILTER (WHERE created_at >= $2) AS week,
       COUNT(*) FILTER (WHERE created_at >= $3) AS month,
       COUNT(*) FILTER (WHERE created_at >= $4) AS year,
       COUNT(*) AS all_time
FROM grievances`
	var result models.ComplaintTotals
	if err := r.db.GetContext(ctx, &result, query,
		now.AddDate(0, 0, -1), now.AddDate(0, 0, -7), now.AddDate(0, 0, -30), now.AddDate(0, 0, -365),
	); err != nil {
		return nil, fmt.Errorf("complaint totals: %w", err)
	}
	return &result, nil
}

// LocationReport summarises grievances per ward.
func (r *ReportRepository) LocationReport(ctx context.Context, filter models.KPIFilter) ([]models.LocationStat, error) {
	where, args := sinceClause(filter, "created_at", "WHERE", nil)
	query := `SELECT COALESCE(ward_number, 'unknown') AS ward,
       COUNT(*) AS total,
       COUNT(*) FILTER (WHERE status IN ('resolved', 'closed')) AS resolved,
       COUNT(*) FILTER (WHERE status IN ('new', 'in_progress', 'on_hold')) AS pending
FROM grievances` + where + `
GROUP BY COALESCE(ward_number, 'unknown')
ORDER BY total DESC, ward ASC`
	var result []models.LocationStat
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("location report: %w", err)
	}
	return result, nil
}

// CitizenGrievances returns every grievance filed by citizenID, newest first.
func (r *ReportRepository) CitizenGrievances(ctx context.Context, citizenID string) ([]models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE citizen_id = $1 ORDER BY created_at DESC, id ASC`
	var result []models.Grievance
	if err := r.db.SelectContext(ctx, &result, query, citizenID); err != nil {
		return nil, fmt.Errorf("citizen grievances: %w", err)
	}
	return result, nil
}
