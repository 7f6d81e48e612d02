// Package services contains server-side business logic. This file implements
// EvidenceService, the single entry point for uploading, downloading and
// inspecting evidence.
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/dmitrijs2005/evidencevault/internal/server/metrics"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/repomanager"
)

const (
	DefaultDeviceInfo = "Unknown"
	DefaultMimeType   = "application/octet-stream"
)

// ContentStore is the part of contentstore.Store the service depends on.
type ContentStore interface {
	Save(ctx context.Context, plaintext []byte, originalFileName string) (*models.StoredFile, error)
	Read(ctx context.Context, path, iv string) ([]byte, error)
}

// EvidenceService orchestrates authorization, the content store, the ledger
// and the audit trail.
type EvidenceService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	store          ContentStore
	ledger         *Ledger
	audit          *AuditTrail
	metrics        *metrics.Metrics
	log            logging.Logger
	maxUploadBytes int64
}

// NewEvidenceService wires the service. maxUploadBytes <= 0 selects
// common.MaxUploadBytes.
func NewEvidenceService(db *sql.DB, m repomanager.RepositoryManager, store ContentStore,
	mt *metrics.Metrics, log logging.Logger, maxUploadBytes int64) *EvidenceService {
	if maxUploadBytes <= 0 || maxUploadBytes > common.MaxUploadBytes {
		maxUploadBytes = common.MaxUploadBytes
	}
	return &EvidenceService{
		db:             db,
		repomanager:    m,
		store:          store,
		ledger:         NewLedger(db, m),
		audit:          NewAuditTrail(db, m),
		metrics:        mt,
		log:            log.With("module", "evidence"),
		maxUploadBytes: maxUploadBytes,
	}
}

// Ledger exposes the version ledger, used by the orphan sweep.
func (s *EvidenceService) Ledger() *Ledger {
	return s.ledger
}

func authorize(caller auth.Identity, roles []auth.Role) error {
	if caller.UserID == "" {
		return common.Errorf(common.ErrUnauthorized, "Authentication required.")
	}
	if !caller.HasAnyRole(roles...) {
		return common.Errorf(common.ErrForbidden, "You are not allowed to perform this action.")
	}
	return nil
}

func (s *EvidenceService) validateUpload(cmd *models.UploadCommand) error {
	if cmd.CaseID <= 0 {
		return common.Errorf(common.ErrValidation, "Case id must be positive.")
	}
	if cmd.ExistingEvidenceID != nil && *cmd.ExistingEvidenceID <= 0 {
		return common.Errorf(common.ErrValidation, "Evidence id must be positive.")
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return common.Errorf(common.ErrValidation, "Title is required.")
	}
	if strings.TrimSpace(cmd.FileName) == "" {
		return common.Errorf(common.ErrValidation, "File name is required.")
	}
	if len(cmd.Content) == 0 {
		return common.Errorf(common.ErrValidation, "File is empty.")
	}
	if int64(len(cmd.Content)) > s.maxUploadBytes {
		return common.Errorf(common.ErrValidation, "File exceeds the maximum size of %d bytes.", s.maxUploadBytes)
	}
	return nil
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, common.ErrForbidden), errors.Is(err, common.ErrUnauthorized):
		return metrics.ResultForbidden
	case errors.Is(err, common.ErrValidation):
		return metrics.ResultInvalid
	case errors.Is(err, common.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, common.ErrConflict):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}

// Upload stores the content and appends a version to a new or existing
// evidence item. The content is written before any ledger row; a ledger
// failure after the write leaves an orphan file that is logged and later
// reported by the sweep.
func (s *EvidenceService) Upload(ctx context.Context, caller auth.Identity, cmd *models.UploadCommand) (res *models.UploadResult, err error) {
	if cmd == nil {
		return nil, common.Errorf(common.ErrValidation, "Upload request is required.")
	}
	defer func() {
		s.metrics.RecordUpload(resultOf(err), int64(len(cmd.Content)))
	}()

	if err := authorize(caller, auth.UploadRoles); err != nil {
		return nil, err
	}
	if err := s.validateUpload(cmd); err != nil {
		return nil, err
	}

	exists, err := s.repomanager.Cases(s.db).Exists(ctx, cmd.CaseID)
	if err != nil {
		return nil, fmt.Errorf("error checking case: %w", err)
	}
	if !exists {
		return nil, common.Errorf(common.ErrNotFound, "Case not found.")
	}

	if cmd.ExistingEvidenceID != nil {
		ev, err := s.repomanager.Evidence(s.db).Get(ctx, *cmd.ExistingEvidenceID)
		if errors.Is(err, common.ErrNotFound) || (err == nil && ev.CaseID != cmd.CaseID) {
			return nil, common.Errorf(common.ErrNotFound, "Evidence item not found.")
		}
		if err != nil {
			return nil, fmt.Errorf("error loading evidence: %w", err)
		}
	}

	stored, err := s.store.Save(ctx, cmd.Content, cmd.FileName)
	if err != nil {
		s.log.Error(ctx, "content store write failed", "case_id", cmd.CaseID, "error", err)
		return nil, err
	}

	deviceInfo := strings.TrimSpace(cmd.DeviceInfo)
	if deviceInfo == "" {
		deviceInfo = DefaultDeviceInfo
	}
	mimeType := strings.TrimSpace(cmd.MimeType)
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	entry := LedgerEntry{
		CaseID:             cmd.CaseID,
		ExistingEvidenceID: cmd.ExistingEvidenceID,
		Title:              cmd.Title,
		Description:        cmd.Description,
		UploaderID:         caller.UserID,
		File:               stored,
		OriginalFileName:   cmd.FileName,
		MimeType:           mimeType,
		DeviceInfo:         deviceInfo,
	}

	res, err = s.commitUpload(ctx, entry)
	if errors.Is(err, common.ErrVersionConflict) {
		s.metrics.RecordVersionRetry()
		s.log.Warn(ctx, "version number taken, retrying", "case_id", cmd.CaseID)
		res, err = s.commitUpload(ctx, entry)
		if errors.Is(err, common.ErrVersionConflict) {
			err = common.Wrap(common.ErrConflict, err, "Another version was uploaded concurrently. Please retry.")
		}
	}
	if err != nil {
		s.log.Warn(ctx, "ledger write failed, stored file is orphaned", "path", stored.Path, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "evidence version uploaded",
		"case_id", cmd.CaseID,
		"evidence_id", res.EvidenceID,
		"version_id", res.EvidenceVersionID,
		"version", res.VersionNumber,
		"size", stored.SizeBytes,
	)
	return res, nil
}

func (s *EvidenceService) commitUpload(ctx context.Context, entry LedgerEntry) (*models.UploadResult, error) {
	var res *models.UploadResult
	err := s.repomanager.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		r, err := s.ledger.CreateOrExtend(ctx, tx, entry)
		if err != nil {
			return err
		}
		if err := s.audit.Log(ctx, tx, uploadedEntry(entry.UploaderID, entry.CaseID, r)); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Download returns the decrypted content of a version and records exactly
// one access row for it. Nothing is recorded when any step fails.
func (s *EvidenceService) Download(ctx context.Context, caller auth.Identity, versionID int64, accessType models.AccessType) (res *models.DownloadResult, err error) {
	defer func() {
		s.metrics.RecordDownload(accessType.String(), resultOf(err))
	}()

	if err := authorize(caller, auth.ReadRoles); err != nil {
		return nil, err
	}
	if !accessType.Valid() {
		return nil, common.Errorf(common.ErrValidation, "Unknown access type.")
	}

	v, _, err := s.ledger.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	content, err := s.store.Read(ctx, v.StoredFilePath, v.EncryptionIV)
	if err != nil {
		s.log.Error(ctx, "content store read failed", "version_id", versionID, "error", err)
		return nil, err
	}

	err = s.repomanager.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.audit.RecordAccess(ctx, tx, v.ID, caller.UserID, accessType); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, accessedEntry(caller.UserID, v.ID, accessType))
	})
	if err != nil {
		common.WipeByteArray(content)
		return nil, err
	}

	s.log.Info(ctx, "evidence accessed", "version_id", v.ID, "access_type", accessType.String())
	return &models.DownloadResult{
		Content:  content,
		MimeType: v.MimeType,
		FileName: v.OriginalFileName,
		SHA256:   v.SHA256,
		MD5:      v.MD5,
	}, nil
}

// ListByCase returns metadata for all evidence of a case.
func (s *EvidenceService) ListByCase(ctx context.Context, caller auth.Identity, caseID int64) ([]*models.EvidenceItem, error) {
	if err := authorize(caller, auth.ReadRoles); err != nil {
		return nil, err
	}
	if caseID <= 0 {
		return nil, common.Errorf(common.ErrValidation, "Case id must be positive.")
	}
	return s.ledger.ListByCase(ctx, caseID)
}

// SearchByHash finds versions whose SHA-256 (64 hex chars) or MD5 (32 hex
// chars) digest equals hash, ignoring case.
func (s *EvidenceService) SearchByHash(ctx context.Context, caller auth.Identity, hash string) ([]*models.HashMatch, error) {
	if err := authorize(caller, auth.ReadRoles); err != nil {
		return nil, err
	}
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) != 32 && len(hash) != 64 {
		return nil, common.Errorf(common.ErrValidation, "Hash must be 32 or 64 hexadecimal characters.")
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return nil, common.Errorf(common.ErrValidation, "Hash must be 32 or 64 hexadecimal characters.")
	}
	return s.ledger.FindByHash(ctx, hash)
}

// AccessHistory returns the chain of custody of a version, oldest first.
func (s *EvidenceService) AccessHistory(ctx context.Context, caller auth.Identity, versionID int64) ([]*models.EvidenceAccessLog, error) {
	if err := authorize(caller, auth.ReadRoles); err != nil {
		return nil, err
	}
	if _, _, err := s.ledger.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}
	return s.audit.ListAccess(ctx, versionID)
}
