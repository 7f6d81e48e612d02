package evidence

import (
	"context"

	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

type Repository interface {
	// Create inserts e and sets its ID.
	Create(ctx context.Context, e *models.Evidence) error
	// Get returns the evidence row or common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.Evidence, error)
	// LockForCase returns the evidence row only if it belongs to caseID,
	// holding a row lock until the surrounding transaction ends.
	LockForCase(ctx context.Context, id, caseID int64) (*models.Evidence, error)
	// ListByCase returns the case's evidence, newest first.
	ListByCase(ctx context.Context, caseID int64) ([]*models.Evidence, error)
}
