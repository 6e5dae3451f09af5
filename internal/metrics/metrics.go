// Package metrics records the outcome of a run and pushes it to a
// Prometheus pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

const namespace = "yk_ddns"

// Recorder holds the metrics for one run in its own registry.
type Recorder struct {
	registry    *prometheus.Registry
	updates     *prometheus.CounterVec
	lastRun     prometheus.Gauge
	runDuration prometheus.Gauge
}

// NewRecorder returns a Recorder with its metrics registered in a private
// registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_updates_total",
			Help:      "Counter of processed entries by service, update method and result.",
		}, []string{"service", "updatemethod", "result"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
}

// ObserveOutcome counts one processed entry.
func (r *Recorder) ObserveOutcome(out ddns.Outcome) {
	result := "success"
	if !out.Succeeded {
		result = "failure"
	}
	r.updates.WithLabelValues(out.Service, out.UpdateMethod, result).Inc()
}

// ObserveRun records when a run finished and how long it took.
func (r *Recorder) ObserveRun(finished time.Time, took time.Duration) {
	r.lastRun.Set(float64(finished.Unix()))
	r.runDuration.Set(took.Seconds())
}

// Gatherer exposes the recorder's registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push replaces the metrics of job on the pushgateway at url.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
