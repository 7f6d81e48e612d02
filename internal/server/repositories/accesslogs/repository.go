package accesslogs

import (
	"context"

	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

type Repository interface {
	// Create appends one access row and sets its ID.
	Create(ctx context.Context, l *models.EvidenceAccessLog) error
	// ListByVersion returns the version's accesses, oldest first.
	ListByVersion(ctx context.Context, versionID int64) ([]*models.EvidenceAccessLog, error)
}
