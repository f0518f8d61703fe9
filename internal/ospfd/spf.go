package ospfd

import (
	"context"
	"time"

	"github.com/ospfd/ospfd/internal/fib"
	"github.com/ospfd/ospfd/internal/spf"
)

// spfLoop recomputes SPF once at startup and again every time the LSDB
// changes, diffing the result against the previously installed table and
// pushing additions/removals through the FIB installer. Direct entries are
// never removed, per internal/fib.Table.Diff.
func (r *Router) spfLoop(ctx context.Context) {
	changes := r.db.Subscribe()

	r.runSPF()

	for r.isRunning() {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			r.runSPF()
		}
	}
}

func (r *Router) runSPF() {
	start := time.Now()
	lsas := r.db.Snapshot()
	lsdbSizeGauge.Set(float64(len(lsas)))

	entries := spf.Compute(r.RouterID, lsas, r)
	spfDurationHistogram.Observe(time.Since(start).Seconds())

	next := fib.New()
	next.Replace(entries)

	additions, removals := r.fibTable.Diff(next)
	removeFailures, addFailures := r.installer.Apply(additions, removals)
	fibFailureCount.WithLabelValues("remove").Add(float64(removeFailures))
	fibFailureCount.WithLabelValues("install").Add(float64(addFailures))
	r.fibTable = next
}
