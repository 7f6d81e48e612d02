// Package memory keeps the evidence tables in process memory. It backs the
// "memory" DSN for development and drives service tests. Transactions are
// serialized and a failed transaction restores the state it started from.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/dbx"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

type tables struct {
	cases      map[int64]models.Case
	evidence   map[int64]models.Evidence
	versions   map[int64]models.EvidenceVersion
	accessLogs []models.EvidenceAccessLog
	auditLogs  []models.AuditLog
	seq        map[string]int64
}

func (t *tables) clone() *tables {
	c := &tables{
		cases:      make(map[int64]models.Case, len(t.cases)),
		evidence:   make(map[int64]models.Evidence, len(t.evidence)),
		versions:   make(map[int64]models.EvidenceVersion, len(t.versions)),
		accessLogs: append([]models.EvidenceAccessLog(nil), t.accessLogs...),
		auditLogs:  append([]models.AuditLog(nil), t.auditLogs...),
		seq:        make(map[string]int64, len(t.seq)),
	}
	for k, v := range t.cases {
		c.cases[k] = v
	}
	for k, v := range t.evidence {
		c.evidence[k] = v
	}
	for k, v := range t.versions {
		c.versions[k] = v
	}
	for k, v := range t.seq {
		c.seq[k] = v
	}
	return c
}

func (t *tables) next(table string) int64 {
	t.seq[table]++
	return t.seq[table]
}

// Store holds all tables. The zero value is not usable; call NewStore.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *tables
}

func NewStore() *Store {
	return &Store{data: &tables{
		cases:    map[int64]models.Case{},
		evidence: map[int64]models.Evidence{},
		versions: map[int64]models.EvidenceVersion{},
		seq:      map[string]int64{},
	}}
}

// WithTx runs fn while holding the store's transaction lock. When fn fails
// or panics every table is restored to its state before the call.
func (s *Store) WithTx(ctx context.Context, fn dbx.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		p := recover()
		if p != nil || err != nil {
			s.mu.Lock()
			s.data = snapshot
			s.mu.Unlock()
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(ctx, nil)
}

// AuditLogs returns a copy of the audit sink, oldest first.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.data.auditLogs...)
}

// CaseRepository is the in-memory cases.Repository.
type CaseRepository struct{ s *Store }

func (s *Store) Cases() *CaseRepository { return &CaseRepository{s: s} }

func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.data.next("cases")
	r.s.data.cases[c.ID] = *c
	return nil
}

func (r *CaseRepository) Exists(ctx context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.data.cases[id]
	return ok, nil
}

// EvidenceRepository is the in-memory evidence.Repository.
type EvidenceRepository struct{ s *Store }

func (s *Store) Evidence() *EvidenceRepository { return &EvidenceRepository{s: s} }

func (r *EvidenceRepository) Create(ctx context.Context, e *models.Evidence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.cases[e.CaseID]; !ok {
		return common.Errorf(common.ErrNotFound, "case %d not found", e.CaseID)
	}
	e.ID = r.s.data.next("evidence")
	r.s.data.evidence[e.ID] = *e
	return nil
}

func (r *EvidenceRepository) Get(ctx context.Context, id int64) (*models.Evidence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.data.evidence[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

// LockForCase needs no row lock: transactions are already serialized.
func (r *EvidenceRepository) LockForCase(ctx context.Context, id, caseID int64) (*models.Evidence, error) {
	e, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.CaseID != caseID {
		return nil, common.ErrNotFound
	}
	return e, nil
}

func (r *EvidenceRepository) ListByCase(ctx context.Context, caseID int64) ([]*models.Evidence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*models.Evidence
	for _, e := range r.s.data.evidence {
		if e.CaseID == caseID {
			e := e
			result = append(result, &e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// VersionRepository is the in-memory versions.Repository.
type VersionRepository struct{ s *Store }

func (s *Store) Versions() *VersionRepository { return &VersionRepository{s: s} }

func (r *VersionRepository) Create(ctx context.Context, v *models.EvidenceVersion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.evidence[v.EvidenceID]; !ok {
		return common.Errorf(common.ErrNotFound, "evidence %d not found", v.EvidenceID)
	}
	for _, existing := range r.s.data.versions {
		if existing.EvidenceID == v.EvidenceID && existing.VersionNumber == v.VersionNumber {
			return common.ErrVersionConflict
		}
	}
	v.ID = r.s.data.next("versions")
	r.s.data.versions[v.ID] = *v
	return nil
}

func (r *VersionRepository) MaxVersion(ctx context.Context, evidenceID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, v := range r.s.data.versions {
		if v.EvidenceID == evidenceID && v.VersionNumber > n {
			n = v.VersionNumber
		}
	}
	return n, nil
}

func (r *VersionRepository) Get(ctx context.Context, id int64) (*models.EvidenceVersion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.data.versions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &v, nil
}

func (r *VersionRepository) ListByEvidence(ctx context.Context, evidenceID int64) ([]*models.EvidenceVersion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*models.EvidenceVersion
	for _, v := range r.s.data.versions {
		if v.EvidenceID == evidenceID {
			v := v
			result = append(result, &v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].VersionNumber > result[j].VersionNumber })
	return result, nil
}

func (r *VersionRepository) FindByHash(ctx context.Context, hash string) ([]*models.HashMatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*models.HashMatch
	for _, v := range r.s.data.versions {
		if !strings.EqualFold(v.SHA256, hash) && !strings.EqualFold(v.MD5, hash) {
			continue
		}
		result = append(result, &models.HashMatch{
			EvidenceVersionID: v.ID,
			EvidenceID:        v.EvidenceID,
			CaseID:            r.s.data.evidence[v.EvidenceID].CaseID,
			VersionNumber:     v.VersionNumber,
			OriginalFileName:  v.OriginalFileName,
			SHA256:            v.SHA256,
			MD5:               v.MD5,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EvidenceVersionID < result[j].EvidenceVersionID })
	return result, nil
}

func (r *VersionRepository) StoredPaths(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]string, 0, len(r.s.data.versions))
	for _, v := range r.s.data.versions {
		result = append(result, v.StoredFilePath)
	}
	sort.Strings(result)
	return result, nil
}

// AccessLogRepository is the in-memory accesslogs.Repository.
type AccessLogRepository struct{ s *Store }

func (s *Store) AccessLogs() *AccessLogRepository { return &AccessLogRepository{s: s} }

func (r *AccessLogRepository) Create(ctx context.Context, l *models.EvidenceAccessLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.versions[l.EvidenceVersionID]; !ok {
		return common.Errorf(common.ErrNotFound, "evidence version %d not found", l.EvidenceVersionID)
	}
	l.ID = r.s.data.next("access_logs")
	r.s.data.accessLogs = append(r.s.data.accessLogs, *l)
	return nil
}

func (r *AccessLogRepository) ListByVersion(ctx context.Context, versionID int64) ([]*models.EvidenceAccessLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*models.EvidenceAccessLog
	for _, l := range r.s.data.accessLogs {
		if l.EvidenceVersionID == versionID {
			l := l
			result = append(result, &l)
		}
	}
	return result, nil
}

// AuditLogRepository is the in-memory auditlogs.Repository.
type AuditLogRepository struct{ s *Store }

func (s *Store) Audit() *AuditLogRepository { return &AuditLogRepository{s: s} }

func (r *AuditLogRepository) Create(ctx context.Context, l *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.data.next("audit_logs")
	r.s.data.auditLogs = append(r.s.data.auditLogs, *l)
	return nil
}
