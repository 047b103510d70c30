package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/response"
)

type grievanceService interface {
	Submit(ctx context.Context, citizenID string, req dto.SubmitGrievanceRequest) (*models.Grievance, error)
	Accept(ctx context.Context, grievanceID, actorID string, req dto.AcceptGrievanceRequest) (*models.Grievance, error)
	Reject(ctx context.Context, grievanceID, actorID, reason string) (*models.Grievance, error)
	UpdateStatus(ctx context.Context, grievanceID, actorID string, req dto.UpdateStatusRequest) (*models.Grievance, error)
	Escalate(ctx context.Context, grievanceID, actorID string, newAssigneeID *string) (*models.EscalationResult, error)
	ConfirmClosure(ctx context.Context, grievanceID, citizenID string) (*models.Grievance, error)
	SubmitFeedback(ctx context.Context, grievanceID, citizenID string, req dto.FeedbackRequest) (*models.Grievance, error)
	AddComment(ctx context.Context, grievanceID, actorID string, req dto.CommentRequest) (*models.GrievanceComment, error)
	ListComments(ctx context.Context, grievanceID, actorID string) ([]models.GrievanceComment, error)
	Reassign(ctx context.Context, grievanceID, actorID string, req dto.ReassignGrievanceRequest) (*models.Grievance, error)
	Get(ctx context.Context, grievanceID, actorID string) (*models.Grievance, error)
	GetByComplaintCode(ctx context.Context, code, actorID string) (*models.Grievance, error)
	RejectionReason(ctx context.Context, grievanceID, citizenID string) (*dto.RejectionReasonResponse, error)
	ListMine(ctx context.Context, citizenID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error)
	ListNew(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error)
	ListAssigned(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error)
	ListAll(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error)
}

type grievanceLister func(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error)

// GrievanceHandler exposes the grievance workflow over HTTP.
type GrievanceHandler struct {
	service grievanceService
}

// NewGrievanceHandler builds a new handler.
func NewGrievanceHandler(service grievanceService) *GrievanceHandler {
	return &GrievanceHandler{service: service}
}

// Submit godoc
// @Summary Submit a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param payload body dto.SubmitGrievanceRequest true "Grievance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Submit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.SubmitGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid grievance payload"))
		return
	}
	grievance, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grievance)
}

// ListMine godoc
// @Summary List grievances filed by the caller
// @Tags Grievances
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grievances/mine [get]
func (h *GrievanceHandler) ListMine(c *gin.Context) {
	h.list(c, h.service.ListMine)
}

// ListNew godoc
// @Summary List new grievances awaiting triage
// @Tags Grievances
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grievances/new [get]
func (h *GrievanceHandler) ListNew(c *gin.Context) {
	h.list(c, h.service.ListNew)
}

// ListAssigned godoc
// @Summary List grievances assigned to the caller
// @Tags Grievances
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /grievances/assigned [get]
func (h *GrievanceHandler) ListAssigned(c *gin.Context) {
	h.list(c, h.service.ListAssigned)
}

// ListAll godoc
// @Summary List every grievance
// @Tags Grievances
// @Produce json
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Param area_id query string false "Area filter"
// @Success 200 {object} response.Envelope
// @Router /grievances [get]
func (h *GrievanceHandler) ListAll(c *gin.Context) {
	h.list(c, h.service.ListAll)
}

// Get godoc
// @Summary Get grievance by id
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	grievance, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// GetByCode godoc
// @Summary Get grievance by complaint code
// @Tags Grievances
// @Produce json
// @Param code path string true "Complaint code"
// @Success 200 {object} response.Envelope
// @Router /grievances/code/{code} [get]
func (h *GrievanceHandler) GetByCode(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	grievance, err := h.service.GetByComplaintCode(c.Request.Context(), c.Param("code"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// Accept godoc
// @Summary Accept and assign a new grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.AcceptGrievanceRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grievances/{id}/accept [post]
func (h *GrievanceHandler) Accept(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.AcceptGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid accept payload"))
		return
	}
	grievance, err := h.service.Accept(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// Reject godoc
// @Summary Reject a new grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.RejectGrievanceRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/reject [post]
func (h *GrievanceHandler) Reject(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.RejectGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid reject payload"))
		return
	}
	grievance, err := h.service.Reject(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// UpdateStatus godoc
// @Summary Move an assigned grievance to another status
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grievances/{id}/status [put]
func (h *GrievanceHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid status payload"))
		return
	}
	grievance, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// Escalate godoc
// @Summary Escalate a grievance to the next tier
// @Description Returns success=false with the unchanged level when the maximum level is reached.
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.EscalateGrievanceRequest false "Optional new assignee"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/escalate [post]
func (h *GrievanceHandler) Escalate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.EscalateGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidBody(err, "invalid escalation payload"))
		return
	}
	if req.AssigneeID != nil && strings.TrimSpace(*req.AssigneeID) == "" {
		req.AssigneeID = nil
	}
	result, err := h.service.Escalate(c.Request.Context(), c.Param("id"), actor, req.AssigneeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Success {
		response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"code": appErrors.ErrLimitExceeded.Code})
		return
	}
	response.OK(c, result)
}

// Close godoc
// @Summary Confirm closure of a resolved grievance
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/close [post]
func (h *GrievanceHandler) Close(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	grievance, err := h.service.ConfirmClosure(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// Feedback godoc
// @Summary Rate a resolved grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.FeedbackRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/feedback [post]
func (h *GrievanceHandler) Feedback(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid feedback payload"))
		return
	}
	grievance, err := h.service.SubmitFeedback(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

// AddComment godoc
// @Summary Comment on a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grievances/{id}/comments [post]
func (h *GrievanceHandler) AddComment(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid comment payload"))
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments godoc
// @Summary List the comment thread of a grievance
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/comments [get]
func (h *GrievanceHandler) ListComments(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	comments, err := h.service.ListComments(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comments)
}

// RejectionReason godoc
// @Summary Get why a grievance was rejected
// @Tags Grievances
// @Produce json
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/rejection [get]
func (h *GrievanceHandler) RejectionReason(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	reason, err := h.service.RejectionReason(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reason)
}

// Reassign godoc
// @Summary Reassign a grievance to different field staff
// @Tags Grievances
// @Accept json
// @Produce json
// @Param id path string true "Grievance ID"
// @Param payload body dto.ReassignGrievanceRequest true "New assignee"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/reassign [put]
func (h *GrievanceHandler) Reassign(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ReassignGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err, "invalid reassign payload"))
		return
	}
	grievance, err := h.service.Reassign(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grievance)
}

func (h *GrievanceHandler) list(c *gin.Context, fetch grievanceLister) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	query := dto.GrievanceQuery{
		Status:   strings.TrimSpace(c.Query("status")),
		Priority: strings.TrimSpace(c.Query("priority")),
		AreaID:   strings.TrimSpace(c.Query("area_id")),
	}
	query.Page, query.PageSize = pageParams(c)
	items, pagination, err := fetch(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
