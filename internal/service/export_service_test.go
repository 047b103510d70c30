package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type exportListerStub struct {
	rows    []models.Grievance
	total   int
	err     error
	filters []models.GrievanceFilter
}

func (s *exportListerStub) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return nil, 0, s.err
	}
	total := s.total
	if total == 0 {
		total = len(s.rows)
	}
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(s.rows) {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[start:end], total, nil
}

func exportRows(n int) []models.Grievance {
	rows := make([]models.Grievance, n)
	for i := range rows {
		rows[i] = models.Grievance{
			ID:            fmt.Sprintf("g-%d", i),
			ComplaintCode: fmt.Sprintf("CODE%04d", i),
			Title:         "Pothole",
			Status:        models.GrievanceStatusNew,
			Priority:      models.PriorityMedium,
			AreaID:        "area-1",
			CitizenID:     "citizen-1",
			CreatedAt:     fixtureNow,
		}
	}
	return rows
}

func newExportFixture(lister *exportListerStub) *ExportService {
	svc := NewExportService(lister, grievanceUsers(), nil)
	svc.now = func() time.Time { return fixtureNow }
	return svc
}

func TestExportServiceCSVPagesThroughEveryRow(t *testing.T) {
	lister := &exportListerStub{rows: exportRows(230)}
	svc := newExportFixture(lister)

	result, err := svc.Export(context.Background(), "admin-1", dto.ReportExportQuery{Format: "CSV", Period: "month", AreaID: "area-1"})
	require.NoError(t, err)
	assert.Equal(t, 230, result.Rows)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "grievance-report-month-20260301.csv", result.Filename)

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	assert.Len(t, lines, 231)
	assert.True(t, strings.HasPrefix(lines[0], "Complaint ID,Title,Status"))
	assert.True(t, strings.HasPrefix(lines[1], "CODE0000,Pothole,new,medium,area-1"))

	require.Len(t, lister.filters, 3)
	first := lister.filters[0]
	assert.Equal(t, "area-1", first.AreaID)
	require.NotNil(t, first.CreatedSince)
	assert.Equal(t, fixtureNow.Add(-30*24*time.Hour), *first.CreatedSince)
	assert.Equal(t, 3, lister.filters[2].Page)
}

func TestExportServicePDFDefault(t *testing.T) {
	svc := newExportFixture(&exportListerStub{rows: exportRows(3)})

	result, err := svc.Export(context.Background(), "admin-1", dto.ReportExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "grievance-report-all-20260301.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF-")))
}

func TestExportServiceValidation(t *testing.T) {
	svc := newExportFixture(&exportListerStub{})

	_, err := svc.Export(context.Background(), "admin-1", dto.ReportExportQuery{Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), "admin-1", dto.ReportExportQuery{Period: "decade"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), "head-1", dto.ReportExportQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportServiceRowLimit(t *testing.T) {
	svc := newExportFixture(&exportListerStub{rows: exportRows(1), total: maxExportRows + 1})

	_, err := svc.Export(context.Background(), "admin-1", dto.ReportExportQuery{Format: "csv"})
	assert.ErrorIs(t, err, appErrors.ErrLimitExceeded)
}

func TestExportServiceListFailure(t *testing.T) {
	svc := newExportFixture(&exportListerStub{err: errors.New("db down")})

	_, err := svc.Export(context.Background(), "admin-1", dto.ReportExportQuery{Format: "csv"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestExportSummaryCountsStatuses(t *testing.T) {
	rows := exportRows(2)
	rows[1].Status = models.GrievanceStatusClosed

	lines := exportSummary(rows, fixtureNow, dto.ReportExportQuery{AreaID: "area-1"})
	values := map[string]string{}
	for _, line := range lines {
		values[line.Label] = line.Value
	}
	assert.Equal(t, "2", values["Total grievances"])
	assert.Equal(t, "area-1", values["Area"])
	assert.Equal(t, "1", values[string(models.GrievanceStatusClosed)])
	assert.Equal(t, "0", values[string(models.GrievanceStatusResolved)])
}
