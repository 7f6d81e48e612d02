package auditlogs

import (
	"context"
	"database/sql"
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

// Create inserts an audit row. An empty UserID is stored as NULL.
func (r *PostgresRepository) Create(ctx context.Context, l *models.AuditLog) error {
	query := `INSERT INTO audit_logs (user_id, action, entity_name, entity_id, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	userID := sql.NullString{String: l.UserID, Valid: l.UserID != ""}

	err := r.db.QueryRowContext(ctx, query, userID, l.Action, l.EntityName, l.EntityID, l.Details, l.Timestamp).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
