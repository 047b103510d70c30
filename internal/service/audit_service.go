package service

import (
	"context"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

type auditLogReader interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// AuditService exposes the audit trail to administrators.
type AuditService struct {
	logs  auditLogReader
	users grievanceUserReader
}

// NewAuditService constructs AuditService.
func NewAuditService(logs auditLogReader, users grievanceUserReader) *AuditService {
	return &AuditService{logs: logs, users: users}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, actorID string, query dto.AuditLogQuery) ([]models.AuditLog, *models.Pagination, error) {
	actor, err := lookupActor(ctx, s.users, actorID)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}}); err != nil {
		return nil, nil, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultAuditPageSize
	}
	if size > maxAuditPageSize {
		size = maxAuditPageSize
	}

	logs, total, err := s.logs.List(ctx, models.AuditLogFilter{
		GrievanceID: query.GrievanceID,
		PerformedBy: query.PerformedBy,
		ActionType:  query.ActionType,
		Page:        page,
		PageSize:    size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
