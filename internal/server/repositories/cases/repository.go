package cases

import (
	"context"

	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

// Repository is the minimal view of the case table the evidence subsystem needs.
type Repository interface {
	Create(ctx context.Context, c *models.Case) error
	Exists(ctx context.Context, id int64) (bool, error)
}
