package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

var grievanceColumnNames = []string{
	"id", "complaint_code", "citizen_id", "subject_id", "area_id", "category_id", "title", "description",
	"address", "latitude", "longitude", "ward_number", "status", "priority", "escalation_level", "assigned_to", "assigned_by",
	"rejection_reason", "resolved_at", "feedback_rating", "feedback_text", "version", "created_at", "updated_at",
}

func grievanceRow(id string, status models.GrievanceStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(grievanceColumnNames).AddRow(
		id, "AB12CD34", "citizen-1", "subject-1", "area-1", nil, "Pothole", "Large pothole near market",
		nil, nil, nil, "12", string(status), string(models.PriorityMedium), 0, nil, nil,
		nil, nil, nil, nil, 1, now, now,
	)
}

func TestGrievanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	g := &models.Grievance{CitizenID: "citizen-1", SubjectID: "s", AreaID: "a", Title: "t", Description: "d",
		Status: models.GrievanceStatusNew, Priority: models.PriorityLow}
	require.NoError(t, repo.Create(context.Background(), nil, g))
	assert.NotEmpty(t, g.ID)
	assert.Len(t, g.ComplaintCode, 8)
	assert.Equal(t, 1, g.Version)
	assert.Equal(t, g.CreatedAt, g.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryCreateRetriesCodeCollision(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (complaint_code) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (complaint_code) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	g := &models.Grievance{CitizenID: "citizen-1", SubjectID: "s", AreaID: "a", Title: "t", Description: "d",
		Status: models.GrievanceStatusNew, Priority: models.PriorityLow}
	require.NoError(t, repo.Create(context.Background(), nil, g))
	assert.Len(t, g.ComplaintCode, 8)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryCreateGivesUpOnFixedCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	g := &models.Grievance{ComplaintCode: "TAKEN001", CitizenID: "citizen-1", SubjectID: "s", AreaID: "a",
		Title: "t", Description: "d", Status: models.GrievanceStatusNew, Priority: models.PriorityLow}
	err := repo.Create(context.Background(), nil, g)
	assert.ErrorIs(t, err, ErrComplaintCodeTaken)
	assert.Equal(t, "TAKEN001", g.ComplaintCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindByIDForUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE id = $1 FOR UPDATE")).
		WithArgs("g-1").
		WillReturnRows(grievanceRow("g-1", models.GrievanceStatusNew))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	g, err := repo.FindByIDForUpdate(context.Background(), tx, "g-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, models.GrievanceStatusNew, g.Status)
	require.NotNil(t, g.WardNumber)
	assert.Equal(t, "12", *g.WardNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGrievanceRepositoryFindByComplaintCodeUppercases(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE complaint_code = $1")).
		WithArgs("AB12CD34").
		WillReturnRows(grievanceRow("g-1", models.GrievanceStatusInProgress))

	g, err := repo.FindByComplaintCode(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, "g-1", g.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryUpdateAdvancesVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET status = $1")).
		WithArgs(models.GrievanceStatusOnHold, models.PriorityHigh, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "g-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	g := &models.Grievance{ID: "g-1", Status: models.GrievanceStatusOnHold, Priority: models.PriorityHigh, EscalationLevel: 2, Version: 4}
	require.NoError(t, repo.Update(context.Background(), nil, g))
	assert.Equal(t, 5, g.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryUpdateStaleVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	g := &models.Grievance{ID: "g-1", Status: models.GrievanceStatusClosed, Version: 2}
	err := repo.Update(context.Background(), nil, g)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 2, g.Version)
}

func TestGrievanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	status := models.GrievanceStatusNew
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grievances WHERE area_id = $1 AND status = $2")).
		WithArgs("area-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE area_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("area-1", status).
		WillReturnRows(grievanceRow("g-1", status))

	list, total, err := repo.List(context.Background(), models.GrievanceFilter{AreaID: "area-1", Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryListCreatedSince(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grievances WHERE citizen_id = $1 AND created_at >= $2")).
		WithArgs("citizen-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE citizen_id = $1 AND created_at >= $2 ORDER BY created_at DESC LIMIT 100 OFFSET 100")).
		WithArgs("citizen-1", since).
		WillReturnRows(sqlmock.NewRows(grievanceColumnNames))

	list, total, err := repo.List(context.Background(), models.GrievanceFilter{CitizenID: "citizen-1", CreatedSince: &since, Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryListSLABreached(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM grievances")).
		WithArgs(models.GrievanceStatusResolved, cutoff, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("g-1").AddRow("g-2"))

	ids, err := repo.ListSLABreached(context.Background(), cutoff, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"g-1", "g-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
