package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

func TestAuditRepositoryCreateWithinTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	grievanceID := "g-1"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), "Grievance closed", models.AuditActionGrievanceClose, "citizen-1", grievanceID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	entry := &models.AuditLog{
		Action:      "Grievance closed",
		ActionType:  models.AuditActionGrievanceClose,
		PerformedBy: "citizen-1",
		GrievanceID: &grievanceID,
		Details:     types.JSONText(`{"from":"resolved","to":"closed"}`),
	}
	require.NoError(t, repo.Create(context.Background(), tx, entry))
	require.NoError(t, tx.Rollback())

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnError(errors.New("disk full"))

	err := repo.Create(context.Background(), nil, &models.AuditLog{Action: "x", ActionType: "X", PerformedBy: "u"})
	assert.Error(t, err)
}

func TestAuditRepositoryListClampsPageSize(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE grievance_id = $1")).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE grievance_id = $1 ORDER BY timestamp DESC LIMIT 200 OFFSET 0")).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "action_type", "performed_by", "grievance_id", "details", "timestamp"}).
			AddRow("a-1", "Grievance closed", models.AuditActionGrievanceClose, "citizen-1", "g-1", []byte(`{}`), time.Now()))

	logs, total, err := repo.List(context.Background(), models.AuditLogFilter{GrievanceID: "g-1", PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "citizen-1", logs[0].PerformedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
