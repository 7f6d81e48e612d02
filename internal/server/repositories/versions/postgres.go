package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

const selectColumns = `SELECT id, evidence_id, version_number, original_file_name, stored_file_path,
		sha256_hash, md5_hash, file_size_bytes, mime_type, encryption_iv, device_info,
		uploaded_by_user_id, uploaded_at
	FROM evidence_versions`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.EvidenceVersion) error {
	query := `INSERT INTO evidence_versions (evidence_id, version_number, original_file_name, stored_file_path,
			sha256_hash, md5_hash, file_size_bytes, mime_type, encryption_iv, device_info,
			uploaded_by_user_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		v.EvidenceID, v.VersionNumber, v.OriginalFileName, v.StoredFilePath,
		v.SHA256, v.MD5, v.FileSizeBytes, v.MimeType, v.EncryptionIV, v.DeviceInfo,
		v.UploadedByUserID, v.UploadedAt,
	).Scan(&v.ID)
	if dbx.IsUniqueViolation(err) {
		return common.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert evidence version: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MaxVersion(ctx context.Context, evidenceID int64) (int, error) {
	query := `SELECT COALESCE(MAX(version_number), 0) FROM evidence_versions WHERE evidence_id=$1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, evidenceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to select max version: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.EvidenceVersion, error) {
	v, err := scan(r.db.QueryRowContext(ctx, selectColumns+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence version: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListByEvidence(ctx context.Context, evidenceID int64) ([]*models.EvidenceVersion, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE evidence_id=$1 ORDER BY version_number DESC`, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence versions: %w", err)
	}
	defer rows.Close()

	var result []*models.EvidenceVersion
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, hash string) ([]*models.HashMatch, error) {
	query := `SELECT v.id, v.evidence_id, e.case_id, v.version_number, v.original_file_name, v.sha256_hash, v.md5_hash
		FROM evidence_versions v
		JOIN evidence e ON e.id = v.evidence_id
		WHERE lower(v.sha256_hash) = lower($1) OR lower(v.md5_hash) = lower($1)
		ORDER BY v.id`

	rows, err := r.db.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to search evidence versions: %w", err)
	}
	defer rows.Close()

	var result []*models.HashMatch
	for rows.Next() {
		var m models.HashMatch
		if err := rows.Scan(&m.EvidenceVersionID, &m.EvidenceID, &m.CaseID, &m.VersionNumber,
			&m.OriginalFileName, &m.SHA256, &m.MD5); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) StoredPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stored_file_path FROM evidence_versions`)
	if err != nil {
		return nil, fmt.Errorf("failed to select stored paths: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.EvidenceVersion, error) {
	var v models.EvidenceVersion
	err := s.Scan(&v.ID, &v.EvidenceID, &v.VersionNumber, &v.OriginalFileName, &v.StoredFilePath,
		&v.SHA256, &v.MD5, &v.FileSizeBytes, &v.MimeType, &v.EncryptionIV, &v.DeviceInfo,
		&v.UploadedByUserID, &v.UploadedAt)
	if err != nil {
		return nil, err
	}
	v.UploadedAt = v.UploadedAt.UTC()
	return &v, nil
}
