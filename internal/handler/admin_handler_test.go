package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	"github.com/ravirajbabasomane202/PCMCApp/internal/service"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type kpiServiceStub struct {
	period  models.KPIPeriod
	actor   string
	citizen string
	err     error
}

func (s *kpiServiceStub) Advanced(ctx context.Context, period models.KPIPeriod) (*models.KPIReport, error) {
	s.period = period
	if s.err != nil {
		return nil, s.err
	}
	return &models.KPIReport{Period: period}, nil
}

func (s *kpiServiceStub) StaffPerformance(ctx context.Context, period models.KPIPeriod) ([]models.StaffPerformance, error) {
	s.period = period
	return []models.StaffPerformance{{StaffID: "staff-1"}}, s.err
}

func (s *kpiServiceStub) LocationReport(ctx context.Context, period models.KPIPeriod) ([]models.LocationStat, error) {
	s.period = period
	return []models.LocationStat{{Ward: "12"}}, s.err
}

func (s *kpiServiceStub) CitizenHistory(ctx context.Context, actorID, citizenID string) (*models.CitizenHistory, error) {
	s.actor, s.citizen = actorID, citizenID
	if s.err != nil {
		return nil, s.err
	}
	return &models.CitizenHistory{CitizenID: citizenID, Total: 2, Grievances: []models.Grievance{{ID: "g-1"}, {ID: "g-2"}}}, nil
}

type auditLogServiceStub struct {
	actor string
	query dto.AuditLogQuery
}

func (s *auditLogServiceStub) List(ctx context.Context, actorID string, query dto.AuditLogQuery) ([]models.AuditLog, *models.Pagination, error) {
	s.actor, s.query = actorID, query
	return []models.AuditLog{{ID: "a-1"}}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, nil
}

type configurationServiceStub struct {
	actor string
	key   string
	value string
	err   error
}

func (s *configurationServiceStub) List(ctx context.Context, actorID string) ([]dto.ConfigurationItem, error) {
	s.actor = actorID
	return []dto.ConfigurationItem{{Key: models.ConfigKeySLAClosureDays, Value: "7"}}, s.err
}

func (s *configurationServiceStub) Get(ctx context.Context, actorID, key string) (*dto.ConfigurationItem, error) {
	s.actor, s.key = actorID, key
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ConfigurationItem{Key: key, Value: "7"}, nil
}

func (s *configurationServiceStub) Update(ctx context.Context, actorID, key string, req dto.UpdateConfigurationRequest) (*dto.ConfigurationItem, error) {
	s.actor, s.key, s.value = actorID, key, req.Value
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ConfigurationItem{Key: key, Value: req.Value}, nil
}

type exporterStub struct {
	actor string
	query dto.ReportExportQuery
	err   error
}

func (s *exporterStub) Export(ctx context.Context, actorID string, query dto.ReportExportQuery) (*service.ExportResult, error) {
	s.actor, s.query = actorID, query
	if s.err != nil {
		return nil, s.err
	}
	return &service.ExportResult{Filename: "grievance-report-week-20260301.csv", ContentType: "text/csv", Data: []byte("Complaint ID\n"), Rows: 0}, nil
}

func newAdminHandler(reports *kpiServiceStub, audit *auditLogServiceStub, configs *configurationServiceStub) *AdminHandler {
	return NewAdminHandler(reports, &exporterStub{}, audit, configs)
}

func TestAdminHandlerKPIs(t *testing.T) {
	reports := &kpiServiceStub{}
	handler := newAdminHandler(reports, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/kpis?period=week", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.KPIs(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.KPIPeriodWeek, reports.period)
}

func TestAdminHandlerKPIsDefaultsToAllTime(t *testing.T) {
	reports := &kpiServiceStub{}
	handler := newAdminHandler(reports, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/reports/location", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.Locations(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.KPIPeriodAll, reports.period)
}

func TestAdminHandlerRejectsUnknownPeriod(t *testing.T) {
	reports := &kpiServiceStub{}
	handler := newAdminHandler(reports, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/reports/staff-performance?period=decade", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.StaffPerformance(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, reports.period)
}

func TestAdminHandlerAuditLogs(t *testing.T) {
	audit := &auditLogServiceStub{}
	handler := newAdminHandler(nil, audit, nil)

	c, w := newGinContext(http.MethodGet, "/admin/audit-logs?grievance_id=g-1&action_type=grievance_escalate&page=3&limit=10", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.AuditLogs(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", audit.actor)
	assert.Equal(t, dto.AuditLogQuery{GrievanceID: "g-1", ActionType: "GRIEVANCE_ESCALATE", Page: 3, PageSize: 10}, audit.query)
	assert.NotNil(t, decode(t, w).Pagination)
}

func TestAdminHandlerUpdateConfig(t *testing.T) {
	configs := &configurationServiceStub{}
	handler := newAdminHandler(nil, nil, configs)

	c, w := newGinContext(http.MethodPut, "/admin/configs/SLA_CLOSURE_DAYS", []byte(`{"value":"10"}`))
	c.Params = gin.Params{{Key: "key", Value: models.ConfigKeySLAClosureDays}}
	asUser(c, "admin-1", models.RoleAdmin)

	handler.UpdateConfig(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ConfigKeySLAClosureDays, configs.key)
	assert.Equal(t, "10", configs.value)
}

func TestAdminHandlerUpdateConfigInvalidBody(t *testing.T) {
	configs := &configurationServiceStub{}
	handler := newAdminHandler(nil, nil, configs)

	c, w := newGinContext(http.MethodPut, "/admin/configs/SLA_CLOSURE_DAYS", []byte(`invalid`))
	c.Params = gin.Params{{Key: "key", Value: models.ConfigKeySLAClosureDays}}
	asUser(c, "admin-1", models.RoleAdmin)

	handler.UpdateConfig(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, configs.key)
}

func TestAdminHandlerConfigsPropagateForbidden(t *testing.T) {
	configs := &configurationServiceStub{err: appErrors.Clone(appErrors.ErrForbidden, "admin only")}
	handler := newAdminHandler(nil, nil, configs)

	c, w := newGinContext(http.MethodGet, "/admin/configs/SLA_CLOSURE_DAYS", nil)
	c.Params = gin.Params{{Key: "key", Value: models.ConfigKeySLAClosureDays}}
	asUser(c, "head-1", models.RoleMemberHead)

	handler.GetConfig(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "head-1", configs.actor)
}

func TestAdminHandlerExportStreamsFile(t *testing.T) {
	exporter := &exporterStub{}
	handler := NewAdminHandler(nil, exporter, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/reports/export?period=week&format=csv&area_id=area-1", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="grievance-report-week-20260301.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Complaint ID\n", w.Body.String())
	assert.Equal(t, dto.ReportExportQuery{Period: "week", Format: "csv", AreaID: "area-1"}, exporter.query)
}

func TestAdminHandlerExportError(t *testing.T) {
	exporter := &exporterStub{err: appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")}
	handler := NewAdminHandler(nil, exporter, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/reports/export?format=xlsx", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerCitizenHistory(t *testing.T) {
	reports := &kpiServiceStub{}
	handler := newAdminHandler(reports, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/users/citizen-1/history", nil)
	c.Params = gin.Params{{Key: "id", Value: "citizen-1"}}
	asUser(c, "admin-1", models.RoleAdmin)

	handler.CitizenHistory(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", reports.actor)
	assert.Equal(t, "citizen-1", reports.citizen)
	var history models.CitizenHistory
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &history))
	assert.Equal(t, 2, history.Total)
	assert.Len(t, history.Grievances, 2)
}

func TestAdminHandlerCitizenHistoryNotFound(t *testing.T) {
	reports := &kpiServiceStub{err: appErrors.Clone(appErrors.ErrNotFound, "citizen not found")}
	handler := newAdminHandler(reports, nil, nil)

	c, w := newGinContext(http.MethodGet, "/admin/users/nobody/history", nil)
	c.Params = gin.Params{{Key: "id", Value: "nobody"}}
	asUser(c, "admin-1", models.RoleAdmin)

	handler.CitizenHistory(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
