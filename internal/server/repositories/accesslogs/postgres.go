package accesslogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.EvidenceAccessLog) error {
	query := `INSERT INTO evidence_access_logs (evidence_version_id, accessed_by_user_id, access_type, accessed_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.db.QueryRowContext(ctx, query, l.EvidenceVersionID, l.AccessedByUserID, int(l.AccessType), l.AccessedAt).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert access log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByVersion(ctx context.Context, versionID int64) ([]*models.EvidenceAccessLog, error) {
	query := `SELECT id, evidence_version_id, accessed_by_user_id, access_type, accessed_at
		FROM evidence_access_logs
		WHERE evidence_version_id=$1
		ORDER BY accessed_at, id`

	rows, err := r.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select access logs: %w", err)
	}
	defer rows.Close()

	var result []*models.EvidenceAccessLog
	for rows.Next() {
		var (
			item       models.EvidenceAccessLog
			accessType int
		)
		if err := rows.Scan(&item.ID, &item.EvidenceVersionID, &item.AccessedByUserID, &accessType, &item.AccessedAt); err != nil {
			return nil, err
		}
		item.AccessType = models.AccessType(accessType)
		item.AccessedAt = item.AccessedAt.UTC()
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
