// Package metrics exposes run gauges and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/pipeline"
)

const DefaultJob = "teater_report"

var ErrNotConfigured = errors.New("pushgateway URL not configured")

type Config struct {
	PushURL string
	Job     string
	// Grouping labels added to the push path, e.g. the unit model.
	Grouping map[string]string
}

// Recorder holds the gauges of a single run in a private registry. After a
// failure only the outcome gauges are pushed, so the gateway keeps the last
// successful report's values.
type Recorder struct {
	registry    *prometheus.Registry
	outcome     *prometheus.Registry
	failed      bool
	units       prometheus.Gauge
	activity    *prometheus.GaugeVec
	grandTotal  prometheus.Gauge
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	success     prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcome:  prometheus.NewRegistry(),
		units: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teater_report_units",
			Help: "Units in the last report.",
		}),
		activity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "teater_report_activity",
			Help: "Activity count per category in the last report window.",
		}, []string{"category"}),
		grandTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teater_report_grand_total",
			Help: "Sum of all activity in the last report window.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teater_report_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teater_report_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teater_report_success",
			Help: "1 if the last run delivered its report, 0 otherwise.",
		}),
	}
	r.registry.MustRegister(r.units, r.activity, r.grandTotal, r.duration, r.lastSuccess, r.success)
	r.outcome.MustRegister(r.duration, r.success)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Succeeded records a delivered report.
func (r *Recorder) Succeeded(summary pipeline.SummaryTable, took time.Duration, at time.Time) {
	total := summary.TotalRow()
	r.units.Set(float64(len(summary.Units())))
	for _, c := range category.All {
		r.activity.WithLabelValues(c.Key()).Set(float64(total.Totals[c]))
	}
	r.grandTotal.Set(float64(total.Total))
	r.duration.Set(took.Seconds())
	r.lastSuccess.Set(float64(at.Unix()))
	r.success.Set(1)
	r.failed = false
}

// Failed records a run that did not deliver.
func (r *Recorder) Failed(took time.Duration) {
	r.duration.Set(took.Seconds())
	r.success.Set(0)
	r.failed = true
}

// Push replaces the job's metric group on the Pushgateway after a success.
// After a failure it merges only success and duration into the group.
func (r *Recorder) Push(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.PushURL) == "" {
		return ErrNotConfigured
	}
	job := cfg.Job
	if job == "" {
		job = DefaultJob
	}
	gatherer := r.registry
	if r.failed {
		gatherer = r.outcome
	}
	pusher := push.New(cfg.PushURL, job).Gatherer(gatherer)
	for name, value := range cfg.Grouping {
		if value != "" {
			pusher = pusher.Grouping(name, value)
		}
	}
	if r.failed {
		if err := pusher.AddContext(ctx); err != nil {
			return fmt.Errorf("push failure metrics: %w", err)
		}
		return nil
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
