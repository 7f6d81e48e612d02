package auditlogs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT INTO audit_logs \(user_id, action, entity_name, entity_id, details, timestamp\).*RETURNING id$`).
		WithArgs("u-1", "EvidenceVersionUploaded", "EvidenceVersion", "11", "caseId=1;evidenceId=5;version=2", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	l := &models.AuditLog{
		UserID:     "u-1",
		Action:     "EvidenceVersionUploaded",
		EntityName: "EvidenceVersion",
		EntityID:   "11",
		Details:    "caseId=1;evidenceId=5;version=2",
		Timestamp:  now,
	}
	require.NoError(t, NewPostgresRepository(db).Create(context.Background(), l))
	assert.Equal(t, int64(3), l.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_AnonymousAndError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO audit_logs`).
		WithArgs(nil, "EvidenceAccessed", "EvidenceVersion", "1", "View", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	err = NewPostgresRepository(db).Create(context.Background(), &models.AuditLog{
		Action: "EvidenceAccessed", EntityName: "EvidenceVersion", EntityID: "1", Details: "View", Timestamp: time.Now(),
	})
	require.ErrorContains(t, err, "failed to insert audit log: db down")
}
