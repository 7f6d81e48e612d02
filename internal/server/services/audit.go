package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/repomanager"
)

const (
	ActionEvidenceVersionUploaded = "EvidenceVersionUploaded"
	ActionEvidenceAccessed        = "EvidenceAccessed"

	EntityEvidenceVersion = "EvidenceVersion"

	maxAuditDetails = 4000
)

// AuditEntry is one record for the shared audit sink.
type AuditEntry struct {
	UserID     string
	Action     string
	EntityName string
	EntityID   string
	Details    string
}

// AuditTrail writes the evidence access table and the shared audit sink.
type AuditTrail struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewAuditTrail(db *sql.DB, m repomanager.RepositoryManager) *AuditTrail {
	return &AuditTrail{
		db:          db,
		repomanager: m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordAccess appends one access row. It must run in the same unit of work
// that returns content to the caller; its failure fails the download.
func (a *AuditTrail) RecordAccess(ctx context.Context, tx dbx.DBTX, versionID int64, userID string, accessType models.AccessType) error {
	row := &models.EvidenceAccessLog{
		EvidenceVersionID: versionID,
		AccessedByUserID:  userID,
		AccessType:        accessType,
		AccessedAt:        a.now(),
	}
	if err := a.repomanager.AccessLogs(tx).Create(ctx, row); err != nil {
		return fmt.Errorf("error recording access: %w", err)
	}
	return nil
}

// Log writes an entry to the audit sink. Details longer than the column
// allows are truncated.
func (a *AuditTrail) Log(ctx context.Context, tx dbx.DBTX, e AuditEntry) error {
	details := truncateDetails(e.Details)
	row := &models.AuditLog{
		UserID:     e.UserID,
		Action:     e.Action,
		EntityName: e.EntityName,
		EntityID:   e.EntityID,
		Details:    details,
		Timestamp:  a.now(),
	}
	if err := a.repomanager.AuditLogs(tx).Create(ctx, row); err != nil {
		return fmt.Errorf("error writing audit log: %w", err)
	}
	return nil
}

// ListAccess returns the chain of custody of a version, oldest first.
func (a *AuditTrail) ListAccess(ctx context.Context, versionID int64) ([]*models.EvidenceAccessLog, error) {
	rows, err := a.repomanager.AccessLogs(a.db).ListByVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("error listing access log: %w", err)
	}
	return rows, nil
}

func uploadedEntry(userID string, caseID int64, r *models.UploadResult) AuditEntry {
	return AuditEntry{
		UserID:     userID,
		Action:     ActionEvidenceVersionUploaded,
		EntityName: EntityEvidenceVersion,
		EntityID:   strconv.FormatInt(r.EvidenceVersionID, 10),
		Details:    fmt.Sprintf("caseId=%d;evidenceId=%d;version=%d", caseID, r.EvidenceID, r.VersionNumber),
	}
}

func accessedEntry(userID string, versionID int64, t models.AccessType) AuditEntry {
	return AuditEntry{
		UserID:     userID,
		Action:     ActionEvidenceAccessed,
		EntityName: EntityEvidenceVersion,
		EntityID:   strconv.FormatInt(versionID, 10),
		Details:    t.String(),
	}
}

// truncateDetails cuts s to at most maxAuditDetails bytes on a rune boundary.
func truncateDetails(s string) string {
	if len(s) <= maxAuditDetails {
		return s
	}
	n := maxAuditDetails
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
