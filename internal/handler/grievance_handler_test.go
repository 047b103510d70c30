package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/middleware"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type grievanceServiceStub struct {
	grievance *models.Grievance
	escalated *models.EscalationResult
	err       error

	actor      string
	id         string
	submitted  dto.SubmitGrievanceRequest
	status     dto.UpdateStatusRequest
	assignee   *string
	query      dto.GrievanceQuery
	listCalled string
	comment    dto.CommentRequest
}

func (s *grievanceServiceStub) result(id, actor string) (*models.Grievance, error) {
	s.id, s.actor = id, actor
	return s.grievance, s.err
}

func (s *grievanceServiceStub) Submit(ctx context.Context, citizenID string, req dto.SubmitGrievanceRequest) (*models.Grievance, error) {
	s.submitted = req
	return s.result("", citizenID)
}

func (s *grievanceServiceStub) Accept(ctx context.Context, grievanceID, actorID string, req dto.AcceptGrievanceRequest) (*models.Grievance, error) {
	return s.result(grievanceID, actorID)
}

func (s *grievanceServiceStub) Reject(ctx context.Context, grievanceID, actorID, reason string) (*models.Grievance, error) {
	return s.result(grievanceID, actorID)
}

func (s *grievanceServiceStub) UpdateStatus(ctx context.Context, grievanceID, actorID string, req dto.UpdateStatusRequest) (*models.Grievance, error) {
	s.status = req
	return s.result(grievanceID, actorID)
}

func (s *grievanceServiceStub) Escalate(ctx context.Context, grievanceID, actorID string, newAssigneeID *string) (*models.EscalationResult, error) {
	s.id, s.actor, s.assignee = grievanceID, actorID, newAssigneeID
	return s.escalated, s.err
}

func (s *grievanceServiceStub) ConfirmClosure(ctx context.Context, grievanceID, citizenID string) (*models.Grievance, error) {
	return s.result(grievanceID, citizenID)
}

func (s *grievanceServiceStub) SubmitFeedback(ctx context.Context, grievanceID, citizenID string, req dto.FeedbackRequest) (*models.Grievance, error) {
	return s.result(grievanceID, citizenID)
}

func (s *grievanceServiceStub) AddComment(ctx context.Context, grievanceID, actorID string, req dto.CommentRequest) (*models.GrievanceComment, error) {
	s.id, s.actor, s.comment = grievanceID, actorID, req
	if s.err != nil {
		return nil, s.err
	}
	return &models.GrievanceComment{ID: "c-1", GrievanceID: grievanceID, UserID: actorID, Comment: req.Text}, nil
}

func (s *grievanceServiceStub) ListComments(ctx context.Context, grievanceID, actorID string) ([]models.GrievanceComment, error) {
	s.id, s.actor = grievanceID, actorID
	if s.err != nil {
		return nil, s.err
	}
	return []models.GrievanceComment{{ID: "c-1", GrievanceID: grievanceID, UserID: "citizen-1", Comment: "Any update?"}}, nil
}

func (s *grievanceServiceStub) Reassign(ctx context.Context, grievanceID, actorID string, req dto.ReassignGrievanceRequest) (*models.Grievance, error) {
	return s.result(grievanceID, actorID)
}

func (s *grievanceServiceStub) Get(ctx context.Context, grievanceID, actorID string) (*models.Grievance, error) {
	return s.result(grievanceID, actorID)
}

func (s *grievanceServiceStub) GetByComplaintCode(ctx context.Context, code, actorID string) (*models.Grievance, error) {
	return s.result(code, actorID)
}

func (s *grievanceServiceStub) RejectionReason(ctx context.Context, grievanceID, citizenID string) (*dto.RejectionReasonResponse, error) {
	s.id, s.actor = grievanceID, citizenID
	if s.err != nil {
		return nil, s.err
	}
	return &dto.RejectionReasonResponse{GrievanceID: grievanceID, Reason: "duplicate"}, nil
}

func (s *grievanceServiceStub) listed(name, actor string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	s.listCalled, s.actor, s.query = name, actor, query
	if s.err != nil {
		return nil, nil, s.err
	}
	return []models.Grievance{{ID: "g-1"}}, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: 1}, nil
}

func (s *grievanceServiceStub) ListMine(ctx context.Context, citizenID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	return s.listed("mine", citizenID, query)
}

func (s *grievanceServiceStub) ListNew(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	return s.listed("new", actorID, query)
}

func (s *grievanceServiceStub) ListAssigned(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	return s.listed("assigned", actorID, query)
}

func (s *grievanceServiceStub) ListAll(ctx context.Context, actorID string, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	return s.listed("all", actorID, query)
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asUser(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestGrievanceHandlerSubmit(t *testing.T) {
	svc := &grievanceServiceStub{grievance: &models.Grievance{ID: "g-1", Status: models.GrievanceStatusNew}}
	handler := NewGrievanceHandler(svc)

	payload, _ := json.Marshal(dto.SubmitGrievanceRequest{SubjectID: "s-1", AreaID: "area-1", Title: "Pothole", Description: "Deep"})
	c, w := newGinContext(http.MethodPost, "/grievances", payload)
	asUser(c, "citizen-1", models.RoleCitizen)

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "citizen-1", svc.actor)
	assert.Equal(t, "Pothole", svc.submitted.Title)
}

func TestGrievanceHandlerRequiresClaims(t *testing.T) {
	handler := NewGrievanceHandler(&grievanceServiceStub{})

	c, w := newGinContext(http.MethodGet, "/grievances/g-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}

	handler.Get(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGrievanceHandlerInvalidBody(t *testing.T) {
	handler := NewGrievanceHandler(&grievanceServiceStub{})

	c, w := newGinContext(http.MethodPut, "/grievances/g-1/status", []byte(`{invalid`))
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "staff-1", models.RoleFieldStaff)

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestGrievanceHandlerMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{appErrors.Clone(appErrors.ErrInvalidTransition, "closed is terminal"), http.StatusConflict},
		{appErrors.Clone(appErrors.ErrForbidden, "not your grievance"), http.StatusForbidden},
		{appErrors.Clone(appErrors.ErrNotFound, "grievance not found"), http.StatusNotFound},
	}
	for _, tc := range cases {
		handler := NewGrievanceHandler(&grievanceServiceStub{err: tc.err})
		c, w := newGinContext(http.MethodPost, "/grievances/g-1/close", nil)
		c.Params = gin.Params{{Key: "id", Value: "g-1"}}
		asUser(c, "citizen-1", models.RoleCitizen)

		handler.Close(c)
		assert.Equal(t, tc.status, w.Code)
	}
}

func TestGrievanceHandlerUpdateStatusPassesPayload(t *testing.T) {
	svc := &grievanceServiceStub{grievance: &models.Grievance{ID: "g-1", Status: models.GrievanceStatusResolved}}
	handler := NewGrievanceHandler(svc)

	payload, _ := json.Marshal(dto.UpdateStatusRequest{Status: "resolved"})
	c, w := newGinContext(http.MethodPut, "/grievances/g-1/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "staff-1", models.RoleFieldStaff)

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g-1", svc.id)
	assert.Equal(t, "staff-1", svc.actor)
	assert.Equal(t, "resolved", svc.status.Status)
}

func TestGrievanceHandlerEscalateWithoutBody(t *testing.T) {
	svc := &grievanceServiceStub{escalated: &models.EscalationResult{Success: true, Level: 1, Message: "Escalated to Member Head"}}
	handler := NewGrievanceHandler(svc)

	c, w := newGinContext(http.MethodPost, "/grievances/g-1/escalate", nil)
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "admin-1", models.RoleAdmin)

	handler.Escalate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.assignee)
	assert.Nil(t, decode(t, w).Meta)
}

func TestGrievanceHandlerEscalateAtLimit(t *testing.T) {
	svc := &grievanceServiceStub{escalated: &models.EscalationResult{Success: false, Level: 3, Message: "Maximum escalation level reached"}}
	handler := NewGrievanceHandler(svc)

	payload := []byte(`{"assigned_to":"staff-2"}`)
	c, w := newGinContext(http.MethodPost, "/grievances/g-1/escalate", payload)
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "admin-1", models.RoleAdmin)

	handler.Escalate(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.assignee)
	assert.Equal(t, "staff-2", *svc.assignee)

	env := decode(t, w)
	assert.Equal(t, appErrors.ErrLimitExceeded.Code, env.Meta["code"])
	var result models.EscalationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Level)
}

func TestGrievanceHandlerListParsesQuery(t *testing.T) {
	svc := &grievanceServiceStub{}
	handler := NewGrievanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/grievances?status=on_hold&priority=high&area_id=area-1&page=2&limit=5", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	handler.ListAll(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all", svc.listCalled)
	assert.Equal(t, dto.GrievanceQuery{Status: "on_hold", Priority: "high", AreaID: "area-1", Page: 2, PageSize: 5}, svc.query)
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestGrievanceHandlerListScopes(t *testing.T) {
	svc := &grievanceServiceStub{}
	handler := NewGrievanceHandler(svc)

	routes := map[string]gin.HandlerFunc{
		"mine":     handler.ListMine,
		"new":      handler.ListNew,
		"assigned": handler.ListAssigned,
	}
	for name, fn := range routes {
		c, w := newGinContext(http.MethodGet, "/grievances/"+name, nil)
		asUser(c, "user-1", models.RoleCitizen)
		fn(c)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, name, svc.listCalled)
		assert.Equal(t, 1, svc.query.Page)
		assert.Equal(t, 20, svc.query.PageSize)
	}
}

func TestGrievanceHandlerRejectionReason(t *testing.T) {
	svc := &grievanceServiceStub{}
	handler := NewGrievanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/grievances/g-9/rejection", nil)
	c.Params = gin.Params{{Key: "id", Value: "g-9"}}
	asUser(c, "citizen-1", models.RoleCitizen)

	handler.RejectionReason(c)
	require.Equal(t, http.StatusOK, w.Code)
	var reason dto.RejectionReasonResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &reason))
	assert.Equal(t, "duplicate", reason.Reason)
	assert.Equal(t, "g-9", reason.GrievanceID)
}

func TestGrievanceHandlerAddComment(t *testing.T) {
	svc := &grievanceServiceStub{}
	handler := NewGrievanceHandler(svc)

	c, w := newGinContext(http.MethodPost, "/grievances/g-1/comments", []byte(`{"comment_text":"Crew visits tomorrow"}`))
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "staff-1", models.RoleFieldStaff)

	handler.AddComment(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "g-1", svc.id)
	assert.Equal(t, "staff-1", svc.actor)
	assert.Equal(t, "Crew visits tomorrow", svc.comment.Text)
	var comment models.GrievanceComment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &comment))
	assert.Equal(t, "c-1", comment.ID)
}

func TestGrievanceHandlerAddCommentErrors(t *testing.T) {
	handler := NewGrievanceHandler(&grievanceServiceStub{})
	c, w := newGinContext(http.MethodPost, "/grievances/g-1/comments", []byte(`{invalid`))
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "citizen-1", models.RoleCitizen)
	handler.AddComment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	handler = NewGrievanceHandler(&grievanceServiceStub{err: appErrors.Clone(appErrors.ErrForbidden, "not a participant")})
	c, w = newGinContext(http.MethodPost, "/grievances/g-1/comments", []byte(`{"comment_text":"hi"}`))
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "citizen-2", models.RoleCitizen)
	handler.AddComment(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGrievanceHandlerListComments(t *testing.T) {
	svc := &grievanceServiceStub{}
	handler := NewGrievanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/grievances/g-1/comments", nil)
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}
	asUser(c, "head-1", models.RoleMemberHead)

	handler.ListComments(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "head-1", svc.actor)
	var comments []models.GrievanceComment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Any update?", comments[0].Comment)
}
