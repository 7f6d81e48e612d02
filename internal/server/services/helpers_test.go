package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/cryptox"
	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/dmitrijs2005/evidencevault/internal/server/contentstore"
	"github.com/dmitrijs2005/evidencevault/internal/server/metrics"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/accesslogs"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/versions"
	"github.com/stretchr/testify/require"
)

var (
	investigator = auth.Identity{UserID: "u-inv", UserName: "ivan", Roles: []auth.Role{auth.RoleInvestigator}}
	prosecutor   = auth.Identity{UserID: "u-pro", UserName: "paula", Roles: []auth.Role{auth.RoleProsecutor}}
	intake       = auth.Identity{UserID: "u-int", UserName: "ines", Roles: []auth.Role{auth.RoleIntakeOfficer}}
)

type fixture struct {
	svc     *EvidenceService
	rm      *repomanager.MemoryRepositoryManager
	store   *contentstore.Store
	metrics *metrics.Metrics
	caseID  int64
}

func newFixture(t *testing.T, wrap func(*repomanager.MemoryRepositoryManager) repomanager.RepositoryManager) *fixture {
	t.Helper()

	rm := repomanager.NewMemoryRepositoryManager()
	c := &models.Case{Title: "Case 1"}
	require.NoError(t, rm.Store().Cases().Create(context.Background(), c))

	backend, err := contentstore.NewFSBackend(t.TempDir())
	require.NoError(t, err)
	key := make([]byte, cryptox.KeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	store, err := contentstore.New(backend, key, logging.Nop())
	require.NoError(t, err)

	var m repomanager.RepositoryManager = rm
	if wrap != nil {
		m = wrap(rm)
	}
	mt := metrics.New()

	return &fixture{
		svc:     NewEvidenceService(nil, m, store, mt, logging.Nop(), 0),
		rm:      rm,
		store:   store,
		metrics: mt,
		caseID:  c.ID,
	}
}

func (f *fixture) upload(t *testing.T, existing *int64, content string) *models.UploadResult {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), investigator, &models.UploadCommand{
		CaseID:             f.caseID,
		ExistingEvidenceID: existing,
		Title:              "Phone dump",
		FileName:           "note.txt",
		MimeType:           "text/plain",
		Content:            []byte(content),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	var paths []string
	require.NoError(t, f.store.Walk(context.Background(), func(p string) error {
		paths = append(paths, p)
		return nil
	}))
	return paths
}

// conflictManager makes the next failures version inserts lose the race.
type conflictManager struct {
	*repomanager.MemoryRepositoryManager
	failures int
}

func (m *conflictManager) Versions(db dbx.DBTX) versions.Repository {
	return &conflictVersions{Repository: m.MemoryRepositoryManager.Versions(db), m: m}
}

type conflictVersions struct {
	versions.Repository
	m *conflictManager
}

func (r *conflictVersions) Create(ctx context.Context, v *models.EvidenceVersion) error {
	if r.m.failures > 0 {
		r.m.failures--
		return common.ErrVersionConflict
	}
	return r.Repository.Create(ctx, v)
}

// brokenAccessLogManager fails every access log write.
type brokenAccessLogManager struct {
	*repomanager.MemoryRepositoryManager
}

func (m *brokenAccessLogManager) AccessLogs(dbx.DBTX) accesslogs.Repository {
	return brokenAccessLogs{}
}

type brokenAccessLogs struct{ accesslogs.Repository }

func (brokenAccessLogs) Create(context.Context, *models.EvidenceAccessLog) error {
	return common.Errorf(common.ErrStorage, "disk full")
}
