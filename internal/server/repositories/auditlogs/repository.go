package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

// Repository writes to the shared audit sink.
type Repository interface {
	Create(ctx context.Context, l *models.AuditLog) error
}
