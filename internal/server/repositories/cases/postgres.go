package cases

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

// Create inserts a case and fills in its id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Case) error {
	query := `INSERT INTO cases (title) VALUES ($1) RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, query, c.Title).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert case: %w", err)
	}
	return nil
}

// Exists reports whether a case with the given id exists.
func (r *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM cases WHERE id=$1)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check case: %w", err)
	}
	return ok, nil
}
