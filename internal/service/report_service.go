package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type kpiRepository interface {
	ResolutionCounts(ctx context.Context, filter models.KPIFilter) (*models.ResolutionRate, error)
	PendingAging(ctx context.Context, filter models.KPIFilter, now time.Time) (*models.PendingAging, error)
	SLACompliance(ctx context.Context, filter models.KPIFilter, slaDays int) (*models.SLACompliance, error)
	StatusCounts(ctx context.Context, filter models.KPIFilter) ([]models.StatusCount, error)
	AreaDistribution(ctx context.Context, filter models.KPIFilter) ([]models.AreaCount, error)
	StaffPerformance(ctx context.Context, filter models.KPIFilter) ([]models.StaffPerformance, error)
	ComplaintTotals(ctx context.Context, now time.Time) (*models.ComplaintTotals, error)
	LocationReport(ctx context.Context, filter models.KPIFilter) ([]models.LocationStat, error)
	CitizenGrievances(ctx context.Context, citizenID string) ([]models.Grievance, error)
}

// ReportService computes read-only KPI snapshots over grievances.
type ReportService struct {
	repo    kpiRepository
	users   grievanceUserReader
	config  ConfigProvider
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs the KPI aggregator.
func NewReportService(repo kpiRepository, users grievanceUserReader, config ConfigProvider, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:    repo,
		users:   users,
		config:  config,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ParseKPIPeriod validates a period token. Empty means all time.
func ParseKPIPeriod(raw string) (models.KPIPeriod, error) {
	period := models.KPIPeriod(strings.ToLower(strings.TrimSpace(raw)))
	if period == "" {
		return models.KPIPeriodAll, nil
	}
	if _, ok := period.Since(time.Time{}); !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "period must be one of day, week, month, year, all")
	}
	return period, nil
}

// ResolutionRate returns the share of grievances that reached CLOSED.
func (s *ReportService) ResolutionRate(ctx context.Context, period models.KPIPeriod) (*models.ResolutionRate, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.repo.ResolutionCounts(ctx, filter)
	s.metrics.ObserveDBQuery("kpi_resolution_rate", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute resolution rate")
	}
	result.Rate = percent(result.Closed, result.Total)
	return result, nil
}

// PendingAging returns open grievance count and mean age in days.
func (s *ReportService) PendingAging(ctx context.Context, period models.KPIPeriod) (*models.PendingAging, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.repo.PendingAging(ctx, filter, s.now())
	s.metrics.ObserveDBQuery("kpi_pending_aging", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute pending aging")
	}
	result.AverageAgeDays = round2(result.AverageAgeDays)
	return result, nil
}

// SLACompliance returns the share of closed grievances closed within the
// configured SLA window.
func (s *ReportService) SLACompliance(ctx context.Context, period models.KPIPeriod) (*models.SLACompliance, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	days := s.config.SLAClosureDays(ctx)
	start := time.Now()
	result, err := s.repo.SLACompliance(ctx, filter, days)
	s.metrics.ObserveDBQuery("kpi_sla_compliance", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute sla compliance")
	}
	result.SLADays = days
	result.Rate = percent(result.WithinSLA, result.Closed)
	result.AvgResolutionDays = round2(result.AvgResolutionDays)
	return result, nil
}

// StatusOverview counts grievances per status. Every status is present.
func (s *ReportService) StatusOverview(ctx context.Context, period models.KPIPeriod) ([]models.StatusCount, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.repo.StatusCounts(ctx, filter)
	s.metrics.ObserveDBQuery("kpi_status_overview", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute status overview")
	}
	counts := make(map[models.GrievanceStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	overview := make([]models.StatusCount, 0, len(models.AllGrievanceStatuses))
	for _, status := range models.AllGrievanceStatuses {
		overview = append(overview, models.StatusCount{Status: status, Count: counts[status]})
	}
	return overview, nil
}

// AreaDistribution counts grievances per area.
func (s *ReportService) AreaDistribution(ctx context.Context, period models.KPIPeriod) ([]models.AreaCount, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.repo.AreaDistribution(ctx, filter)
	s.metrics.ObserveDBQuery("kpi_area_distribution", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute area distribution")
	}
	if rows == nil {
		rows = []models.AreaCount{}
	}
	return rows, nil
}

// StaffPerformance summarises workload and outcomes per field staff member.
func (s *ReportService) StaffPerformance(ctx context.Context, period models.KPIPeriod) ([]models.StaffPerformance, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.repo.StaffPerformance(ctx, filter)
	s.metrics.ObserveDBQuery("kpi_staff_performance", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute staff performance")
	}
	if rows == nil {
		rows = []models.StaffPerformance{}
	}
	for i := range rows {
		rows[i].AvgResolutionHours = round2(rows[i].AvgResolutionHours)
		rows[i].AvgFeedbackRating = round2(rows[i].AvgFeedbackRating)
	}
	return rows, nil
}

// ComplaintTotals counts grievances filed in trailing windows.
func (s *ReportService) ComplaintTotals(ctx context.Context) (*models.ComplaintTotals, error) {
	start := time.Now()
	result, err := s.repo.ComplaintTotals(ctx, s.now())
	s.metrics.ObserveDBQuery("kpi_complaint_totals", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute complaint totals")
	}
	return result, nil
}

// LocationReport summarises grievances per ward.
func (s *ReportService) LocationReport(ctx context.Context, period models.KPIPeriod) ([]models.LocationStat, error) {
	filter, err := s.filter(period)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.repo.LocationReport(ctx, filter)
	s.metrics.ObserveDBQuery("kpi_location_report", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to compute location report")
	}
	if rows == nil {
		rows = []models.LocationStat{}
	}
	return rows, nil
}

// Advanced assembles every KPI for the period, querying concurrently.
func (s *ReportService) Advanced(ctx context.Context, period models.KPIPeriod) (*models.KPIReport, error) {
	if _, err := s.filter(period); err != nil {
		return nil, err
	}
	if period == "" {
		period = models.KPIPeriodAll
	}
	report := &models.KPIReport{Period: period, GeneratedAt: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.ResolutionRate(gctx, period)
		if err == nil {
			report.ResolutionRate = *v
		}
		return err
	})
	g.Go(func() error {
		v, err := s.PendingAging(gctx, period)
		if err == nil {
			report.PendingAging = *v
		}
		return err
	})
	g.Go(func() error {
		v, err := s.SLACompliance(gctx, period)
		if err == nil {
			report.SLACompliance = *v
		}
		return err
	})
	g.Go(func() error {
		v, err := s.StatusOverview(gctx, period)
		report.StatusOverview = v
		return err
	})
	g.Go(func() error {
		v, err := s.AreaDistribution(gctx, period)
		report.AreaDistribution = v
		return err
	})
	g.Go(func() error {
		v, err := s.StaffPerformance(gctx, period)
		report.StaffPerformance = v
		return err
	})
	g.Go(func() error {
		v, err := s.ComplaintTotals(gctx)
		if err == nil {
			report.ComplaintTotals = *v
		}
		return err
	})
	g.Go(func() error {
		v, err := s.LocationReport(gctx, period)
		report.Locations = v
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("kpi report failed", zap.String("period", string(period)), zap.Error(err))
		return nil, err
	}
	return report, nil
}

// CitizenHistory lists every grievance a citizen has filed with per-status
// counts and the mean feedback rating. Only administrators may read it.
func (s *ReportService) CitizenHistory(ctx context.Context, actorID, citizenID string) (*models.CitizenHistory, error) {
	actor, err := lookupActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}}); err != nil {
		return nil, err
	}
	citizen, err := s.users.FindByID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "citizen not found")
		}
		return nil, kpiError(err, "failed to load citizen")
	}
	if citizen.Role != models.RoleCitizen {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a citizen")
	}

	start := time.Now()
	grievances, err := s.repo.CitizenGrievances(ctx, citizen.ID)
	s.metrics.ObserveDBQuery("report_citizen_history", time.Since(start))
	if err != nil {
		return nil, kpiError(err, "failed to load citizen history")
	}
	if grievances == nil {
		grievances = []models.Grievance{}
	}

	counts := make(map[models.GrievanceStatus]int, len(models.AllGrievanceStatuses))
	ratingSum := decimal.Zero
	rated := 0
	for _, g := range grievances {
		counts[g.Status]++
		if g.FeedbackRating != nil {
			ratingSum = ratingSum.Add(decimal.NewFromInt(int64(*g.FeedbackRating)))
			rated++
		}
	}
	history := &models.CitizenHistory{
		CitizenID:    citizen.ID,
		Name:         citizen.Name,
		Email:        citizen.Email,
		Total:        len(grievances),
		StatusCounts: make([]models.StatusCount, 0, len(models.AllGrievanceStatuses)),
		Rated:        rated,
		Grievances:   grievances,
	}
	for _, status := range models.AllGrievanceStatuses {
		history.StatusCounts = append(history.StatusCounts, models.StatusCount{Status: status, Count: counts[status]})
	}
	if rated > 0 {
		history.AvgFeedbackRating = ratingSum.Div(decimal.NewFromInt(int64(rated))).Round(2).InexactFloat64()
	}
	return history, nil
}

func (s *ReportService) filter(period models.KPIPeriod) (models.KPIFilter, error) {
	since, ok := period.Since(s.now())
	if !ok {
		return models.KPIFilter{}, appErrors.Clone(appErrors.ErrValidation, "period must be one of day, week, month, year, all")
	}
	return models.KPIFilter{Since: since}, nil
}

func kpiError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// percent returns part/whole*100 rounded to two places; 0 when whole is 0.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(2).
		InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
