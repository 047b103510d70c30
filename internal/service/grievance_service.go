package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

const (
	tracerName = "github.com/ravirajbabasomane202/PCMCApp/internal/service"
	// maxPageSize mirrors the cap the grievance repository applies to LIMIT.
	maxPageSize = 100
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type grievanceStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, g *models.Grievance) error
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Grievance, error)
	FindByComplaintCode(ctx context.Context, code string) (*models.Grievance, error)
	Update(ctx context.Context, exec sqlx.ExtContext, g *models.Grievance) error
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
}

type grievanceUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error
}

type commentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, c *models.GrievanceComment) error
	ListByGrievance(ctx context.Context, grievanceID string) ([]models.GrievanceComment, error)
}

type grievanceNotifier interface {
	NotifyUser(ctx context.Context, userID, subject, body, grievanceID string) error
}

// GrievanceServiceDeps bundles collaborators of the workflow engine.
type GrievanceServiceDeps struct {
	Tx         txProvider
	Grievances grievanceStore
	Users      grievanceUserReader
	Audit      auditWriter
	Comments   commentStore
	Config     ConfigProvider
	Notifier   grievanceNotifier
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Clock      func() time.Time
}

// GrievanceService drives grievances through their lifecycle. Every mutation
// runs in one transaction that locks the row, applies the change and writes a
// single audit entry. Notifications go out only after commit.
type GrievanceService struct {
	tx         txProvider
	grievances grievanceStore
	users      grievanceUserReader
	audit      auditWriter
	comments   commentStore
	config     ConfigProvider
	notifier   grievanceNotifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewGrievanceService wires the workflow engine.
func NewGrievanceService(deps GrievanceServiceDeps) *GrievanceService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &GrievanceService{
		tx:         deps.Tx,
		grievances: deps.Grievances,
		users:      deps.Users,
		audit:      deps.Audit,
		comments:   deps.Comments,
		config:     deps.Config,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		validator:  deps.Validator,
		logger:     deps.Logger,
		tracer:     otel.Tracer(tracerName),
		now:        deps.Clock,
	}
}

// mutation applies a change to a locked grievance. Returning a nil entry
// leaves the grievance untouched and rolls the transaction back.
type mutation func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error)

// Submit files a new grievance on behalf of a citizen.
func (s *GrievanceService) Submit(ctx context.Context, citizenID string, req dto.SubmitGrievanceRequest) (result *models.Grievance, err error) {
	ctx, span := s.tracer.Start(ctx, "grievance.submit")
	defer func() { s.finish(span, "submit", err) }()

	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
		return nil, err
	}
	actor, err := s.loadActor(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	if err = Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleCitizen}}); err != nil {
		return nil, err
	}

	priority := s.config.DefaultPriority(ctx)
	if strings.TrimSpace(req.Priority) != "" {
		parsed, ok := models.ParsePriority(req.Priority)
		if !ok {
			err = appErrors.Clone(appErrors.ErrValidation, "unknown priority")
			return nil, err
		}
		priority = parsed
	}

	now := s.now()
	g := &models.Grievance{
		CitizenID:   actor.ID,
		SubjectID:   req.SubjectID,
		AreaID:      req.AreaID,
		CategoryID:  req.CategoryID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		WardNumber:  req.WardNumber,
		Status:      models.GrievanceStatusNew,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.grievances.Create(ctx, tx, g); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grievance")
		return nil, err
	}
	entry := &models.AuditLog{
		Action:      fmt.Sprintf("Grievance created (Complaint ID %s)", g.ComplaintCode),
		ActionType:  models.AuditActionGrievanceCreate,
		PerformedBy: actor.ID,
		GrievanceID: &g.ID,
		Details:     transitionDetails("", g.Status),
	}
	if err = s.audit.Create(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit grievance")
		return nil, err
	}

	span.SetAttributes(attribute.String("grievance.id", g.ID))
	s.notify(ctx, g.CitizenID, "Grievance Submitted",
		fmt.Sprintf("Your grievance %s has been registered.", g.ComplaintCode), g.ID)
	return g, nil
}

// Accept moves a NEW grievance into progress and assigns it to field staff.
func (s *GrievanceService) Accept(ctx context.Context, grievanceID, actorID string, req dto.AcceptGrievanceRequest) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	priority, ok := models.ParsePriority(req.Priority)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	g, err := s.mutate(ctx, "accept", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, triageRequirement(g)); err != nil {
			return nil, err
		}
		if g.Status != models.GrievanceStatusNew {
			return nil, invalidTransition(g.Status, models.GrievanceStatusInProgress)
		}
		assignee, err := s.fieldStaff(ctx, req.AssigneeID)
		if err != nil {
			return nil, err
		}
		g.Status = models.GrievanceStatusInProgress
		g.Priority = priority
		g.AssignedTo = &assignee.ID
		g.AssignedBy = &actor.ID
		return &models.AuditLog{
			Action:      "Grievance accepted and assigned",
			ActionType:  models.AuditActionGrievanceAccept,
			PerformedBy: actor.ID,
			Details:     transitionDetails(models.GrievanceStatusNew, g.Status),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, g.CitizenID, "Grievance Accepted",
		fmt.Sprintf("Your grievance %s has been accepted and assigned.", g.ComplaintCode), g.ID)
	s.notify(ctx, *g.AssignedTo, "New Grievance Assigned",
		fmt.Sprintf("Grievance %s has been assigned to you.", g.ComplaintCode), g.ID)
	return g, nil
}

// Reject closes a NEW grievance without action, recording the reason.
func (s *GrievanceService) Reject(ctx context.Context, grievanceID, actorID, reason string) (*models.Grievance, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	g, err := s.mutate(ctx, "reject", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, triageRequirement(g)); err != nil {
			return nil, err
		}
		if g.Status != models.GrievanceStatusNew {
			return nil, invalidTransition(g.Status, models.GrievanceStatusRejected)
		}
		g.Status = models.GrievanceStatusRejected
		g.RejectionReason = &reason
		return &models.AuditLog{
			Action:      "Grievance rejected",
			ActionType:  models.AuditActionGrievanceReject,
			PerformedBy: actor.ID,
			Details:     transitionDetails(models.GrievanceStatusNew, g.Status),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, g.CitizenID, "Grievance Rejected",
		fmt.Sprintf("Your grievance %s was rejected: %s", g.ComplaintCode, reason), g.ID)
	return g, nil
}

// UpdateStatus lets the assignee (or an admin) move an in-flight grievance to
// any status. The token is matched case-insensitively.
func (s *GrievanceService) UpdateStatus(ctx context.Context, grievanceID, actorID string, req dto.UpdateStatusRequest) (*models.Grievance, error) {
	target, ok := models.ParseGrievanceStatus(req.Status)
	if !ok {
		s.metrics.RecordTransition("update_status", "invalid")
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown status %q", req.Status))
	}
	reason := strings.TrimSpace(req.Reason)
	if target == models.GrievanceStatusRejected && reason == "" {
		s.metrics.RecordTransition("update_status", "invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	g, err := s.mutate(ctx, "update_status", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, updateRequirement(g)); err != nil {
			return nil, err
		}
		from := g.Status
		if from != models.GrievanceStatusInProgress && from != models.GrievanceStatusOnHold {
			return nil, invalidTransition(from, target)
		}
		if !from.CanTransitionTo(target) {
			return nil, invalidTransition(from, target)
		}
		g.Status = target
		switch target {
		case models.GrievanceStatusResolved:
			if g.ResolvedAt == nil {
				resolved := s.now()
				g.ResolvedAt = &resolved
			}
		case models.GrievanceStatusRejected:
			g.RejectionReason = &reason
		}
		return &models.AuditLog{
			Action:      fmt.Sprintf("Status updated from %s to %s", from, target),
			ActionType:  models.AuditActionGrievanceStatus,
			PerformedBy: actor.ID,
			Details:     transitionDetails(from, target),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, g.CitizenID, "Grievance Status Updated",
		fmt.Sprintf("Your grievance %s is now %s.", g.ComplaintCode, g.Status), g.ID)
	return g, nil
}

// Escalate raises a grievance to the next authority tier and puts it on hold,
// optionally handing it to different field staff. At the configured maximum
// the result reports failure and nothing is written.
func (s *GrievanceService) Escalate(ctx context.Context, grievanceID, actorID string, newAssigneeID *string) (*models.EscalationResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var (
		limited    bool
		maxLevel   int
		reassigned *string
	)
	g, err := s.mutate(ctx, "escalate", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}}); err != nil {
			return nil, err
		}
		if g.Status.IsTerminal() {
			return nil, invalidTransition(g.Status, models.GrievanceStatusOnHold)
		}
		maxLevel = s.config.MaxEscalationLevel(ctx)
		if g.EscalationLevel >= maxLevel {
			limited = true
			return nil, nil
		}
		if newAssigneeID != nil && strings.TrimSpace(*newAssigneeID) != "" {
			assignee, err := s.fieldStaff(ctx, strings.TrimSpace(*newAssigneeID))
			if err != nil {
				return nil, err
			}
			g.AssignedTo = &assignee.ID
			g.AssignedBy = &actor.ID
			reassigned = &assignee.ID
		}
		from := g.Status
		g.EscalationLevel++
		g.Status = models.GrievanceStatusOnHold
		details := map[string]interface{}{
			"from_status": from,
			"to_status":   g.Status,
			"level":       g.EscalationLevel,
		}
		if reassigned != nil {
			details["assigned_to"] = *reassigned
		}
		return &models.AuditLog{
			Action:      fmt.Sprintf("Grievance %s escalated to level %d", g.ID, g.EscalationLevel),
			ActionType:  models.AuditActionGrievanceEscalate,
			PerformedBy: actor.ID,
			Details:     jsonDetails(details),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if limited {
		return &models.EscalationResult{
			Success: false,
			Message: fmt.Sprintf("Maximum escalation level (%d) reached", maxLevel),
			Level:   g.EscalationLevel,
		}, nil
	}

	tier := models.EscalationTierName(g.EscalationLevel)
	s.notify(ctx, g.CitizenID, "Grievance Escalated",
		fmt.Sprintf("Your grievance %s has been escalated to %s.", g.ComplaintCode, tier), g.ID)
	if reassigned != nil {
		s.notify(ctx, *reassigned, "Escalated Grievance Assigned",
			fmt.Sprintf("Escalated grievance %s has been assigned to you.", g.ComplaintCode), g.ID)
	}
	return &models.EscalationResult{
		Success: true,
		Message: fmt.Sprintf("Grievance escalated to %s", tier),
		Level:   g.EscalationLevel,
	}, nil
}

// ConfirmClosure lets the owning citizen close a resolved grievance.
func (s *GrievanceService) ConfirmClosure(ctx context.Context, grievanceID, citizenID string) (*models.Grievance, error) {
	actor, err := s.loadActor(ctx, citizenID)
	if err != nil {
		return nil, err
	}

	g, err := s.mutate(ctx, "close", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, ownerRequirement(g)); err != nil {
			return nil, err
		}
		if g.Status != models.GrievanceStatusResolved {
			return nil, invalidTransition(g.Status, models.GrievanceStatusClosed)
		}
		g.Status = models.GrievanceStatusClosed
		return &models.AuditLog{
			Action:      "Grievance closed",
			ActionType:  models.AuditActionGrievanceClose,
			PerformedBy: actor.ID,
			Details:     transitionDetails(models.GrievanceStatusResolved, g.Status),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, g.CitizenID, "Grievance Closed",
		fmt.Sprintf("Your grievance %s has been closed.", g.ComplaintCode), g.ID)
	return g, nil
}

// CheckAutoClose closes a resolved grievance whose SLA window has elapsed. It
// is a no-op for any other grievance and safe to call repeatedly.
func (s *GrievanceService) CheckAutoClose(ctx context.Context, grievanceID string) (*models.Grievance, error) {
	var closed bool
	g, err := s.mutate(ctx, "auto_close", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if !s.slaElapsed(ctx, g) {
			return nil, nil
		}
		g.Status = models.GrievanceStatusClosed
		closed = true
		return &models.AuditLog{
			Action:      "Auto-closed due to SLA",
			ActionType:  models.AuditActionGrievanceAutoClose,
			PerformedBy: SystemActor.ID,
			Details:     transitionDetails(models.GrievanceStatusResolved, g.Status),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if closed {
		s.metrics.RecordAutoClose()
		s.notify(ctx, g.CitizenID, "Grievance Closed",
			fmt.Sprintf("Your grievance %s was closed automatically after the resolution period.", g.ComplaintCode), g.ID)
	}
	return g, nil
}

// SubmitFeedback records the owning citizen's rating while the grievance is
// resolved. Feedback can only be given once.
func (s *GrievanceService) SubmitFeedback(ctx context.Context, grievanceID, citizenID string, req dto.FeedbackRequest) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	actor, err := s.loadActor(ctx, citizenID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, "feedback", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, ownerRequirement(g)); err != nil {
			return nil, err
		}
		if g.Status != models.GrievanceStatusResolved {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "feedback is accepted only for resolved grievances")
		}
		if g.FeedbackRating != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
		}
		rating := req.Rating
		g.FeedbackRating = &rating
		if text := strings.TrimSpace(req.Text); text != "" {
			g.FeedbackText = &text
		}
		return &models.AuditLog{
			Action:      fmt.Sprintf("Feedback submitted for grievance %s", g.ID),
			ActionType:  models.AuditActionGrievanceFeedback,
			PerformedBy: actor.ID,
			Details:     jsonDetails(map[string]interface{}{"rating": rating}),
		}, nil
	})
}

// AddComment appends a note to the grievance thread. Anyone who can view the
// grievance may comment; the grievance row itself is not modified.
func (s *GrievanceService) AddComment(ctx context.Context, grievanceID, actorID string, req dto.CommentRequest) (result *models.GrievanceComment, err error) {
	ctx, span := s.tracer.Start(ctx, "grievance.comment", trace.WithAttributes(attribute.String("grievance.id", grievanceID)))
	defer func() { s.finish(span, "comment", err) }()

	req.Text = strings.TrimSpace(req.Text)
	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
		return nil, err
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if s.comments == nil {
		err = appErrors.Clone(appErrors.ErrInternal, "comment store missing")
		return nil, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	g, err := s.grievances.FindByIDForUpdate(ctx, tx, grievanceID)
	if err != nil {
		err = notFoundOrInternal(err, "failed to load grievance")
		return nil, err
	}
	if err = Authorize(actor, viewRequirement(g)); err != nil {
		return nil, err
	}

	comment := &models.GrievanceComment{GrievanceID: g.ID, UserID: actor.ID, Comment: req.Text, CreatedAt: s.now()}
	if err = s.comments.Create(ctx, tx, comment); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
		return nil, err
	}
	entry := &models.AuditLog{
		Action:      fmt.Sprintf("Comment added to grievance %s", g.ID),
		ActionType:  models.AuditActionGrievanceComment,
		PerformedBy: actor.ID,
		GrievanceID: &g.ID,
		Details:     jsonDetails(map[string]interface{}{"comment_id": comment.ID}),
	}
	if err = s.audit.Create(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit comment")
		return nil, err
	}
	return comment, nil
}

// ListComments returns the grievance thread, oldest first, to anyone who can
// view the grievance.
func (s *GrievanceService) ListComments(ctx context.Context, grievanceID, actorID string) ([]models.GrievanceComment, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	g, err := s.grievances.FindByID(ctx, grievanceID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load grievance")
	}
	if err := Authorize(actor, viewRequirement(g)); err != nil {
		return nil, err
	}
	if s.comments == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "comment store missing")
	}
	comments, err := s.comments.ListByGrievance(ctx, g.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	if comments == nil {
		comments = []models.GrievanceComment{}
	}
	return comments, nil
}

// Reassign hands an open grievance to different field staff.
func (s *GrievanceService) Reassign(ctx context.Context, grievanceID, actorID string, req dto.ReassignGrievanceRequest) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	g, err := s.mutate(ctx, "reassign", grievanceID, func(ctx context.Context, g *models.Grievance) (*models.AuditLog, error) {
		if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}}); err != nil {
			return nil, err
		}
		if g.Status.IsTerminal() {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot reassign a %s grievance", g.Status))
		}
		assignee, err := s.fieldStaff(ctx, req.AssigneeID)
		if err != nil {
			return nil, err
		}
		details := map[string]interface{}{"assigned_to": assignee.ID}
		if g.AssignedTo != nil {
			details["previous_assignee"] = *g.AssignedTo
		}
		g.AssignedTo = &assignee.ID
		g.AssignedBy = &actor.ID
		return &models.AuditLog{
			Action:      fmt.Sprintf("Grievance %s reassigned to user %s", g.ID, assignee.ID),
			ActionType:  models.AuditActionGrievanceReassign,
			PerformedBy: actor.ID,
			Details:     jsonDetails(details),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, *g.AssignedTo, "Grievance Reassigned",
		fmt.Sprintf("Grievance %s has been assigned to you.", g.ComplaintCode), g.ID)
	return g, nil
}

// Get returns a grievance visible to the actor, auto-closing it first when its
// SLA window has elapsed.
func (s *GrievanceService) Get(ctx context.Context, grievanceID, actorID string) (*models.Grievance, error) {
	g, err := s.grievances.FindByID(ctx, grievanceID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load grievance")
	}
	return s.visible(ctx, actorID, g)
}

// GetByComplaintCode returns a grievance by its public complaint code.
func (s *GrievanceService) GetByComplaintCode(ctx context.Context, code, actorID string) (*models.Grievance, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "complaint id is required")
	}
	g, err := s.grievances.FindByComplaintCode(ctx, code)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load grievance")
	}
	return s.visible(ctx, actorID, g)
}

// RejectionReason exposes why the owner's grievance was rejected.
func (s *GrievanceService) RejectionReason(ctx context.Context, grievanceID, citizenID string) (*dto.RejectionReasonResponse, error) {
	actor, err := s.loadActor(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	g, err := s.grievances.FindByID(ctx, grievanceID)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load grievance")
	}
	if err := Authorize(actor, ownerRequirement(g)); err != nil {
		return nil, err
	}
	if g.Status != models.GrievanceStatusRejected || g.RejectionReason == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "grievance has not been rejected")
	}
	return &dto.RejectionReasonResponse{GrievanceID: g.ID, Reason: *g.RejectionReason}, nil
}

// ListMine lists grievances filed by the citizen.
func (s *GrievanceService) ListMine(ctx context.Context, citizenID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	actor, err := s.loadActor(ctx, citizenID)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleCitizen}}); err != nil {
		return nil, nil, err
	}
	filter, err := buildGrievanceFilter(query)
	if err != nil {
		return nil, nil, err
	}
	filter.CitizenID = actor.ID
	filter.AreaID = ""
	return s.list(ctx, filter)
}

// ListNew lists grievances awaiting triage. Member heads see their own area.
func (s *GrievanceService) ListNew(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleMemberHead, models.RoleAdmin}}); err != nil {
		return nil, nil, err
	}
	filter, err := buildGrievanceFilter(query)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleMemberHead {
		if actor.DepartmentID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "member head has no assigned area")
		}
		filter.AreaID = actor.DepartmentID
	}
	status := models.GrievanceStatusNew
	filter.Status = &status
	return s.list(ctx, filter)
}

// ListAssigned lists grievances assigned to the field staff member.
func (s *GrievanceService) ListAssigned(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleFieldStaff}}); err != nil {
		return nil, nil, err
	}
	filter, err := buildGrievanceFilter(query)
	if err != nil {
		return nil, nil, err
	}
	filter.AssignedTo = actor.ID
	return s.list(ctx, filter)
}

// ListAll lists every grievance for administrators.
func (s *GrievanceService) ListAll(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if err := Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}}); err != nil {
		return nil, nil, err
	}
	filter, err := buildGrievanceFilter(query)
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, filter)
}

func (s *GrievanceService) list(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, *models.Pagination, error) {
	items, total, err := s.grievances.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
	}
	if items == nil {
		items = []models.Grievance{}
	}
	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *GrievanceService) visible(ctx context.Context, actorID string, g *models.Grievance) (*models.Grievance, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, viewRequirement(g)); err != nil {
		return nil, err
	}
	if !s.slaElapsed(ctx, g) {
		return g, nil
	}
	closed, err := s.CheckAutoClose(ctx, g.ID)
	if err != nil {
		s.logger.Warn("lazy sla auto-close failed", zap.String("grievance_id", g.ID), zap.Error(err))
		return g, nil
	}
	return closed, nil
}

// mutate runs fn against the locked row and persists the change together with
// its audit entry.
func (s *GrievanceService) mutate(ctx context.Context, action, grievanceID string, fn mutation) (result *models.Grievance, err error) {
	ctx, span := s.tracer.Start(ctx, "grievance."+action, trace.WithAttributes(attribute.String("grievance.id", grievanceID)))
	defer func() { s.finish(span, action, err) }()

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	g, err := s.grievances.FindByIDForUpdate(ctx, tx, grievanceID)
	if err != nil {
		err = notFoundOrInternal(err, "failed to load grievance")
		return nil, err
	}

	entry, err := fn(ctx, g)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		_ = tx.Rollback()
		return g, nil
	}

	if err = s.grievances.Update(ctx, tx, g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrConflict, "grievance was modified concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grievance")
		return nil, err
	}

	entry.GrievanceID = &g.ID
	if err = s.audit.Create(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit grievance")
		return nil, err
	}

	s.logger.Info("grievance transition",
		zap.String("action", action),
		zap.String("grievance_id", g.ID),
		zap.String("performed_by", entry.PerformedBy),
		zap.String("status", string(g.Status)),
	)
	return g, nil
}

func (s *GrievanceService) begin(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	return tx, nil
}

func (s *GrievanceService) finish(span trace.Span, action string, err error) {
	result := transitionResult(err)
	s.metrics.RecordTransition(action, result)
	span.SetAttributes(attribute.String("grievance.result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *GrievanceService) loadActor(ctx context.Context, userID string) (Actor, error) {
	return lookupActor(ctx, s.users, userID)
}

// lookupActor resolves the caller. Unknown accounts are not found and inactive
// ones are denied.
func lookupActor(ctx context.Context, users grievanceUserReader, userID string) (Actor, error) {
	if strings.TrimSpace(userID) == "" {
		return Actor{}, appErrors.Clone(appErrors.ErrUnauthorized, "missing user identity")
	}
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Actor{}, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return Actor{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return Actor{}, appErrors.Clone(appErrors.ErrForbidden, "user is inactive")
	}
	return ActorFromUser(user), nil
}

// fieldStaff resolves an assignee and checks it can take grievances.
func (s *GrievanceService) fieldStaff(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}
	if user.Role != models.RoleFieldStaff {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must be field staff")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee is inactive")
	}
	return user, nil
}

func (s *GrievanceService) slaElapsed(ctx context.Context, g *models.Grievance) bool {
	if g.Status != models.GrievanceStatusResolved || g.ResolvedAt == nil {
		return false
	}
	window := time.Duration(s.config.SLAClosureDays(ctx)) * 24 * time.Hour
	return s.now().Sub(*g.ResolvedAt) > window
}

func (s *GrievanceService) notify(ctx context.Context, userID, subject, body, grievanceID string) {
	if s.notifier == nil || userID == "" {
		return
	}
	if err := s.notifier.NotifyUser(ctx, userID, subject, body, grievanceID); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("user_id", userID),
			zap.String("grievance_id", grievanceID),
			zap.Error(err),
		)
	}
}

func triageRequirement(g *models.Grievance) Requirement {
	return Requirement{
		Roles:          []models.UserRole{models.RoleMemberHead, models.RoleAdmin},
		MustTriageArea: true,
		AdminBypass:    true,
		Grievance:      g,
	}
}

func updateRequirement(g *models.Grievance) Requirement {
	return Requirement{
		Roles:          []models.UserRole{models.RoleFieldStaff, models.RoleAdmin},
		MustBeAssignee: true,
		AdminBypass:    true,
		Grievance:      g,
	}
}

func ownerRequirement(g *models.Grievance) Requirement {
	return Requirement{Roles: []models.UserRole{models.RoleCitizen}, MustOwn: true, Grievance: g}
}

func viewRequirement(g *models.Grievance) Requirement {
	return Requirement{MustOwn: true, MustBeAssignee: true, MustTriageArea: true, AdminBypass: true, Grievance: g}
}

func buildGrievanceFilter(query dto.GrievanceQuery) (models.GrievanceFilter, error) {
	filter := models.GrievanceFilter{
		AreaID:   strings.TrimSpace(query.AreaID),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Status != "" {
		status, ok := models.ParseGrievanceStatus(query.Status)
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	if query.Priority != "" {
		priority, ok := models.ParsePriority(query.Priority)
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown priority filter")
		}
		filter.Priority = &priority
	}
	return filter, nil
}

func invalidTransition(from, to models.GrievanceStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move grievance from %s to %s", from, to))
}

func notFoundOrInternal(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, appErrors.ErrForbidden), errors.Is(err, appErrors.ErrUnauthorized):
		return "denied"
	case errors.Is(err, appErrors.ErrInvalidTransition), errors.Is(err, appErrors.ErrValidation):
		return "invalid"
	case errors.Is(err, appErrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, appErrors.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func transitionDetails(from, to models.GrievanceStatus) types.JSONText {
	details := map[string]interface{}{"to_status": to}
	if from != "" {
		details["from_status"] = from
	}
	return jsonDetails(details)
}

func jsonDetails(details map[string]interface{}) types.JSONText {
	payload, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return types.JSONText(payload)
}
