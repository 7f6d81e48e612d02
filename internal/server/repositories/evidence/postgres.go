package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

const selectColumns = `SELECT id, case_id, title, description, created_by_user_id, created_at FROM evidence`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Evidence) error {
	query := `INSERT INTO evidence (case_id, title, description, created_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	description := sql.NullString{String: e.Description, Valid: e.Description != ""}

	err := r.db.QueryRowContext(ctx, query, e.CaseID, e.Title, description, e.CreatedByUserID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Evidence, error) {
	return r.getOne(ctx, selectColumns+` WHERE id=$1`, id)
}

func (r *PostgresRepository) LockForCase(ctx context.Context, id, caseID int64) (*models.Evidence, error) {
	return r.getOne(ctx, selectColumns+` WHERE id=$1 AND case_id=$2 FOR UPDATE`, id, caseID)
}

func (r *PostgresRepository) ListByCase(ctx context.Context, caseID int64) ([]*models.Evidence, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE case_id=$1 ORDER BY created_at DESC, id DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	defer rows.Close()

	var result []*models.Evidence
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Evidence, error) {
	item, err := scan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	return item, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Evidence, error) {
	var (
		item        models.Evidence
		description sql.NullString
	)
	if err := s.Scan(&item.ID, &item.CaseID, &item.Title, &description, &item.CreatedByUserID, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Description = description.String
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}
