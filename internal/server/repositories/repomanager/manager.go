package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/accesslogs"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/cases"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/evidence"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/versions"
)

// RepositoryManager vends repositories bound to a connection or transaction
// and owns the transaction boundary for its backend.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	WithTx(ctx context.Context, db *sql.DB, fn dbx.TxFunc) error
	Cases(db dbx.DBTX) cases.Repository
	Evidence(db dbx.DBTX) evidence.Repository
	Versions(db dbx.DBTX) versions.Repository
	AccessLogs(db dbx.DBTX) accesslogs.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
