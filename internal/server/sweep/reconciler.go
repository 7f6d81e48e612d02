// Package sweep reports content store objects that no ledger row references.
// Such orphans appear when a ledger transaction fails after the encrypted
// file was written. They are reported, never deleted.
package sweep

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/metrics"
)

// Walker enumerates stored locators.
type Walker interface {
	Walk(ctx context.Context, fn func(locator string) error) error
}

// PathSource lists the locators referenced by the ledger.
type PathSource interface {
	StoredPaths(ctx context.Context) ([]string, error)
}

// Report is the outcome of one reconciliation.
type Report struct {
	Scanned int
	Orphans []string
}

type Reconciler struct {
	store   Walker
	ledger  PathSource
	metrics *metrics.Metrics
	log     logging.Logger
}

func NewReconciler(store Walker, ledger PathSource, m *metrics.Metrics, log logging.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		ledger:  ledger,
		metrics: m,
		log:     log.With("module", "sweep"),
	}
}

// Run compares the content store with the ledger. Orphans are sorted.
func (r *Reconciler) Run(ctx context.Context) (rep *Report, err error) {
	defer func() {
		n := 0
		if rep != nil {
			n = len(rep.Orphans)
		}
		r.metrics.RecordSweep(n, err)
	}()

	// Store first: a file whose row commits after the walk is still found
	// in the ledger read that follows.
	rep = &Report{}
	var seen []string
	err = r.store.Walk(ctx, func(locator string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Scanned++
		seen = append(seen, locator)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking content store: %w", err)
	}

	paths, err := r.ledger.StoredPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading ledger paths: %w", err)
	}
	known := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		known[p] = struct{}{}
	}
	for _, locator := range seen {
		if _, ok := known[locator]; !ok {
			rep.Orphans = append(rep.Orphans, locator)
		}
	}
	sort.Strings(rep.Orphans)

	for _, o := range rep.Orphans {
		r.log.Warn(ctx, "orphaned evidence file", "path", o)
	}
	r.log.Info(ctx, "sweep completed", "scanned", rep.Scanned, "orphans", len(rep.Orphans))
	return rep, nil
}
