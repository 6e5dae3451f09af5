package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/metrics"
)

// Runner turns configured entries into drivers and processes them once, in
// order.
type Runner struct {
	Registry *ddns.Registry
	Log      logr.Logger
	Metrics  *metrics.Recorder // optional
}

// Build resolves and constructs the drivers of every entry. It stops at the
// first entry that names an unknown driver or whose driver rejects its
// settings; nothing is processed in that case.
func (r *Runner) Build(entries []config.Entry) ([]*ddns.Entry, error) {
	built := make([]*ddns.Entry, 0, len(entries))
	for i, e := range entries {
		seq := i + 1

		service, err := r.Registry.NewService(e.Service, r.Log.WithName(e.Service), e.Settings)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", seq, err)
		}
		source, err := r.Registry.NewSource(e.UpdateMethod, r.Log.WithName(e.UpdateMethod), e.Settings)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", seq, err)
		}

		built = append(built, ddns.NewEntry(seq, e.Service, service, e.UpdateMethod, source, r.Log))
	}
	return built, nil
}

// Run builds all entries and processes them sequentially. A build failure is
// returned before any entry runs. Processing failures are logged and
// collected in the report; the run carries on with the next entry.
func (r *Runner) Run(ctx context.Context, entries []config.Entry) (*Report, error) {
	built, err := r.Build(entries)
	if err != nil {
		return nil, err
	}
	r.Log.V(1).Info("loaded entries", "count", len(built))

	start := time.Now()
	report := &Report{Outcomes: make([]ddns.Outcome, 0, len(built))}
	for _, e := range built {
		out := e.Process(ctx)
		if !out.Succeeded {
			r.Log.Error(out.Err, "failed updating entry", "entry", out.Seq, "service", out.Service, "updatemethod", out.UpdateMethod)
		}
		if r.Metrics != nil {
			r.Metrics.ObserveOutcome(out)
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	if r.Metrics != nil {
		r.Metrics.ObserveRun(time.Now(), time.Since(start))
	}
	return report, nil
}
