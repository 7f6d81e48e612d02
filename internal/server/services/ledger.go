package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/repomanager"
)

// LedgerEntry is everything the ledger records for one upload.
type LedgerEntry struct {
	CaseID             int64
	ExistingEvidenceID *int64
	Title              string
	Description        string
	UploaderID         string
	File               *models.StoredFile
	OriginalFileName   string
	MimeType           string
	DeviceInfo         string
}

// Ledger owns evidence metadata and the append-only version chain.
type Ledger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewLedger(db *sql.DB, m repomanager.RepositoryManager) *Ledger {
	return &Ledger{
		db:          db,
		repomanager: m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrExtend appends a version inside tx, creating the evidence item
// first when no existing id is given. The next version number is derived
// from the current maximum within the same transaction; an existing
// evidence row is locked so concurrent uploads to it queue up. A lost race
// surfaces as common.ErrVersionConflict.
func (l *Ledger) CreateOrExtend(ctx context.Context, tx dbx.DBTX, e LedgerEntry) (*models.UploadResult, error) {
	evidenceRepo := l.repomanager.Evidence(tx)
	versionRepo := l.repomanager.Versions(tx)
	now := l.now()

	var ev *models.Evidence
	if e.ExistingEvidenceID != nil {
		var err error
		ev, err = evidenceRepo.LockForCase(ctx, *e.ExistingEvidenceID, e.CaseID)
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf(common.ErrNotFound, "Evidence item not found.")
		}
		if err != nil {
			return nil, fmt.Errorf("error loading evidence: %w", err)
		}
	} else {
		ev = &models.Evidence{
			CaseID:          e.CaseID,
			Title:           strings.TrimSpace(e.Title),
			Description:     strings.TrimSpace(e.Description),
			CreatedByUserID: e.UploaderID,
			CreatedAt:       now,
		}
		if err := evidenceRepo.Create(ctx, ev); err != nil {
			return nil, fmt.Errorf("error creating evidence: %w", err)
		}
	}

	current, err := versionRepo.MaxVersion(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("error reading version counter: %w", err)
	}

	v := &models.EvidenceVersion{
		EvidenceID:       ev.ID,
		VersionNumber:    current + 1,
		OriginalFileName: strings.TrimSpace(e.OriginalFileName),
		StoredFilePath:   e.File.Path,
		SHA256:           e.File.SHA256,
		MD5:              e.File.MD5,
		FileSizeBytes:    e.File.SizeBytes,
		MimeType:         strings.TrimSpace(e.MimeType),
		EncryptionIV:     e.File.IV,
		DeviceInfo:       strings.TrimSpace(e.DeviceInfo),
		UploadedByUserID: e.UploaderID,
		UploadedAt:       now,
	}
	if err := versionRepo.Create(ctx, v); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating evidence version: %w", err)
	}

	return &models.UploadResult{
		EvidenceID:        ev.ID,
		EvidenceVersionID: v.ID,
		VersionNumber:     v.VersionNumber,
		SHA256:            v.SHA256,
		MD5:               v.MD5,
	}, nil
}

// ListByCase returns the case's evidence newest first, each with its
// versions newest first.
func (l *Ledger) ListByCase(ctx context.Context, caseID int64) ([]*models.EvidenceItem, error) {
	items, err := l.repomanager.Evidence(l.db).ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("error listing evidence: %w", err)
	}

	versionRepo := l.repomanager.Versions(l.db)
	result := make([]*models.EvidenceItem, 0, len(items))
	for _, ev := range items {
		versions, err := versionRepo.ListByEvidence(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("error listing versions: %w", err)
		}
		result = append(result, &models.EvidenceItem{Evidence: ev, Versions: versions})
	}
	return result, nil
}

// GetVersion returns a version with its parent evidence.
func (l *Ledger) GetVersion(ctx context.Context, versionID int64) (*models.EvidenceVersion, *models.Evidence, error) {
	v, err := l.repomanager.Versions(l.db).Get(ctx, versionID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil, common.Errorf(common.ErrNotFound, "Evidence version not found.")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error loading evidence version: %w", err)
	}

	ev, err := l.repomanager.Evidence(l.db).Get(ctx, v.EvidenceID)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading evidence: %w", err)
	}
	return v, ev, nil
}

// FindByHash returns versions whose SHA-256 or MD5 equals hash.
func (l *Ledger) FindByHash(ctx context.Context, hash string) ([]*models.HashMatch, error) {
	matches, err := l.repomanager.Versions(l.db).FindByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("error searching by hash: %w", err)
	}
	return matches, nil
}

// StoredPaths returns every locator the ledger references.
func (l *Ledger) StoredPaths(ctx context.Context) ([]string, error) {
	paths, err := l.repomanager.Versions(l.db).StoredPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing stored paths: %w", err)
	}
	return paths, nil
}
