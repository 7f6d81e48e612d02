package versions

import (
	"context"

	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

type Repository interface {
	// Create inserts v and sets its ID. A duplicate (evidence, version number)
	// pair yields common.ErrVersionConflict.
	Create(ctx context.Context, v *models.EvidenceVersion) error
	// MaxVersion returns the highest version number of the evidence, or 0.
	MaxVersion(ctx context.Context, evidenceID int64) (int, error)
	// Get returns the version or common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.EvidenceVersion, error)
	// ListByEvidence returns versions newest first.
	ListByEvidence(ctx context.Context, evidenceID int64) ([]*models.EvidenceVersion, error)
	// FindByHash matches hash against SHA-256 and MD5 digests, ignoring case.
	FindByHash(ctx context.Context, hash string) ([]*models.HashMatch, error)
	// StoredPaths returns every content store locator referenced by the ledger.
	StoredPaths(ctx context.Context) ([]string, error)
}
