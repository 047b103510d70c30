package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	"github.com/ravirajbabasomane202/PCMCApp/internal/service"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/response"
)

type kpiService interface {
	Advanced(ctx context.Context, period models.KPIPeriod) (*models.KPIReport, error)
	StaffPerformance(ctx context.Context, period models.KPIPeriod) ([]models.StaffPerformance, error)
	LocationReport(ctx context.Context, period models.KPIPeriod) ([]models.LocationStat, error)
	CitizenHistory(ctx context.Context, actorID, citizenID string) (*models.CitizenHistory, error)
}

type auditLogService interface {
	List(ctx context.Context, actorID string, query dto.AuditLogQuery) ([]models.AuditLog, *models.Pagination, error)
}

type reportExporter interface {
	Export(ctx context.Context, actorID string, query dto.ReportExportQuery) (*service.ExportResult, error)
}

type configurationService interface {
	List(ctx context.Context, actorID string) ([]dto.ConfigurationItem, error)
	Get(ctx context.Context, actorID, key string) (*dto.ConfigurationItem, error)
	Update(ctx context.Context, actorID, key string, req dto.UpdateConfigurationRequest) (*dto.ConfigurationItem, error)
}

// AdminHandler serves the administrator dashboard endpoints.
type AdminHandler struct {
	reports  kpiService
	exporter reportExporter
	audit    auditLogService
	configs  configurationService
}

// NewAdminHandler builds a new handler.
func NewAdminHandler(reports kpiService, exporter reportExporter, audit auditLogService, configs configurationService) *AdminHandler {
	return &AdminHandler{reports: reports, exporter: exporter, audit: audit, configs: configs}
}

// KPIs godoc
// @Summary Composite KPI report
// @Tags Admin
// @Produce json
// @Param period query string false "day, week, month, year or all"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/kpis [get]
func (h *AdminHandler) KPIs(c *gin.Context) {
	period, err := service.ParseKPIPeriod(c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Advanced(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// StaffPerformance godoc
// @Summary Per staff workload and outcomes
// @Tags Admin
// @Produce json
// @Param period query string false "day, week, month, year or all"
// @Success 200 {object} response.Envelope
// @Router /admin/reports/staff-performance [get]
func (h *AdminHandler) StaffPerformance(c *gin.Context) {
	period, err := service.ParseKPIPeriod(c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.reports.StaffPerformance(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// Locations godoc
// @Summary Grievances per ward
// @Tags Admin
// @Produce json
// @Param period query string false "day, week, month, year or all"
// @Success 200 {object} response.Envelope
// @Router /admin/reports/location [get]
func (h *AdminHandler) Locations(c *gin.Context) {
	period, err := service.ParseKPIPeriod(c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.reports.LocationReport(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// CitizenHistory godoc
// @Summary Grievance history of one citizen
// @Tags Admin
// @Produce json
// @Param id path string true "Citizen ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/history [get]
func (h *AdminHandler) CitizenHistory(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	history, err := h.reports.CitizenHistory(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}

// Export godoc
// @Summary Download grievances as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param period query string false "day, week, month, year or all"
// @Param format query string false "csv or pdf (default pdf)"
// @Param citizen_id query string false "Citizen filter"
// @Param area_id query string false "Area filter"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/reports/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	query := dto.ReportExportQuery{
		Period:    c.Query("period"),
		Format:    c.Query("format"),
		CitizenID: c.Query("citizen_id"),
		AreaID:    c.Query("area_id"),
	}
	result, err := h.exporter.Export(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// AuditLogs godoc
// @Summary List audit log entries
// @Tags Admin
// @Produce json
// @Param grievance_id query string false "Grievance filter"
// @Param performed_by query string false "Actor filter"
// @Param action_type query string false "Action type filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	query := dto.AuditLogQuery{
		GrievanceID: strings.TrimSpace(c.Query("grievance_id")),
		PerformedBy: strings.TrimSpace(c.Query("performed_by")),
		ActionType:  strings.ToUpper(strings.TrimSpace(c.Query("action_type"))),
	}
	query.Page, query.PageSize = pageParams(c)
	logs, pagination, err := h.audit.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// ListConfigs godoc
// @Summary List master configuration
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/configs [get]
func (h *AdminHandler) ListConfigs(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	items, err := h.configs.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// GetConfig godoc
// @Summary Get one master configuration key
// @Tags Admin
// @Produce json
// @Param key path string true "Configuration key"
// @Success 200 {object} response.Envelope
// @Router /admin/configs/{key} [get]
func (h *AdminHandler) GetConfig(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	item, err := h.configs.Get(c.Request.Context(), actor, c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// UpdateConfig godoc
// @Summary Update master configuration
// @Tags Admin
// @Accept json
// @Produce json
// @Param key path string true "Configuration key"
// @Param payload body dto.UpdateConfigurationRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/configs/{key} [put]
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid configuration payload"))
		return
	}
	item, err := h.configs.Update(c.Request.Context(), actor, c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
