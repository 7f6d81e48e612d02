package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/accesslogs"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/cases"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/evidence"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/memory"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/versions"
)

// MemoryRepositoryManager serves every repository from one memory.Store.
// The *sql.DB and dbx.DBTX arguments are ignored.
type MemoryRepositoryManager struct {
	store *memory.Store
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore()}
}

// Store exposes the backing store.
func (m *MemoryRepositoryManager) Store() *memory.Store {
	return m.store
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, _ *sql.DB, fn dbx.TxFunc) error {
	return m.store.WithTx(ctx, fn)
}

func (m *MemoryRepositoryManager) Cases(dbx.DBTX) cases.Repository {
	return m.store.Cases()
}

func (m *MemoryRepositoryManager) Evidence(dbx.DBTX) evidence.Repository {
	return m.store.Evidence()
}

func (m *MemoryRepositoryManager) Versions(dbx.DBTX) versions.Repository {
	return m.store.Versions()
}

func (m *MemoryRepositoryManager) AccessLogs(dbx.DBTX) accesslogs.Repository {
	return m.store.AccessLogs()
}

func (m *MemoryRepositoryManager) AuditLogs(dbx.DBTX) auditlogs.Repository {
	return m.store.Audit()
}
