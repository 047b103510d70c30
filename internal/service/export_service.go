package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/export"
)

const (
	exportPageSize = 100
	maxExportRows  = 10000
)

var exportHeaders = []string{
	"Complaint ID", "Title", "Status", "Priority", "Area", "Ward",
	"Citizen", "Assignee", "Escalation", "Created", "Resolved", "Rating",
}

type grievanceExportLister interface {
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
}

// ExportResult is a rendered report ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders grievance listings as CSV or PDF documents.
type ExportService struct {
	grievances grievanceExportLister
	users      grievanceUserReader
	renderers  map[string]export.Renderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(grievances grievanceExportLister, users grievanceUserReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	renderers := map[string]export.Renderer{
		"csv": export.NewCSVExporter(),
		"pdf": export.NewPDFExporter(),
	}
	return &ExportService{
		grievances: grievances,
		users:      users,
		renderers:  renderers,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Export renders every grievance matching the query. Administrators only.
func (s *ExportService) Export(ctx context.Context, actorID string, query dto.ReportExportQuery) (*ExportResult, error) {
	actor, err := lookupActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}}); err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "pdf"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	period, err := ParseKPIPeriod(query.Period)
	if err != nil {
		return nil, err
	}

	now := s.now()
	since, _ := period.Since(now)
	filter := models.GrievanceFilter{
		CitizenID:    strings.TrimSpace(query.CitizenID),
		AreaID:       strings.TrimSpace(query.AreaID),
		CreatedSince: since,
		PageSize:     exportPageSize,
	}
	rows, err := s.collect(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Grievance Report (%s)", period),
		Summary: exportSummary(rows, now, query),
		Headers: exportHeaders,
		Rows:    make([][]string, 0, len(rows)),
	}
	for i := range rows {
		data.Rows = append(data.Rows, exportRow(&rows[i]))
	}

	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	s.logger.Info("grievance report exported",
		zap.String("format", format),
		zap.String("period", string(period)),
		zap.Int("rows", len(rows)),
		zap.String("actor", actorID),
	)
	return &ExportResult{
		Filename:    fmt.Sprintf("grievance-report-%s-%s.%s", period, now.Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        body,
		Rows:        len(rows),
	}, nil
}

func (s *ExportService) collect(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, error) {
	var all []models.Grievance
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.grievances.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grievances for export")
		}
		if total > maxExportRows {
			return nil, appErrors.Clone(appErrors.ErrLimitExceeded, fmt.Sprintf("report would contain %d grievances, narrow the filter below %d", total, maxExportRows))
		}
		all = append(all, batch...)
		if len(batch) < exportPageSize || len(all) >= total {
			return all, nil
		}
	}
}

func exportSummary(rows []models.Grievance, now time.Time, query dto.ReportExportQuery) []export.SummaryLine {
	counts := make(map[models.GrievanceStatus]int, len(models.AllGrievanceStatuses))
	for _, g := range rows {
		counts[g.Status]++
	}
	lines := []export.SummaryLine{
		{Label: "Generated", Value: now.Format("2006-01-02 15:04 MST")},
		{Label: "Total grievances", Value: strconv.Itoa(len(rows))},
	}
	if query.AreaID != "" {
		lines = append(lines, export.SummaryLine{Label: "Area", Value: query.AreaID})
	}
	if query.CitizenID != "" {
		lines = append(lines, export.SummaryLine{Label: "Citizen", Value: query.CitizenID})
	}
	for _, status := range models.AllGrievanceStatuses {
		lines = append(lines, export.SummaryLine{Label: string(status), Value: strconv.Itoa(counts[status])})
	}
	return lines
}

func exportRow(g *models.Grievance) []string {
	resolved := ""
	if g.ResolvedAt != nil {
		resolved = g.ResolvedAt.Format("2006-01-02")
	}
	rating := ""
	if g.FeedbackRating != nil {
		rating = strconv.Itoa(*g.FeedbackRating)
	}
	return []string{
		g.ComplaintCode,
		g.Title,
		string(g.Status),
		string(g.Priority),
		g.AreaID,
		deref(g.WardNumber),
		g.CitizenID,
		deref(g.AssignedTo),
		strconv.Itoa(g.EscalationLevel),
		g.CreatedAt.Format("2006-01-02"),
		resolved,
		rating,
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
