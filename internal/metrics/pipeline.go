package metrics

import (
	"context"

	"github.com/lodthe/sparkify-dwh/internal/report"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const JobName = "sparkify_dwh"

// NewPipelineExporter creates an exporter with its own registry.
// The command is attached as a grouping key on push, so it is not a metric label.
func NewPipelineExporter(command string) *PipelineExporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PipelineExporter{
		command:  command,
		registry: registry,
		duration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "How long it took to process a pipeline stage during the last run.",
			},
			[]string{"stage"},
		),
		rows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pipeline",
				Name:      "stage_rows",
				Help:      "How many rows or statements were processed by a pipeline stage during the last run, partitioned by status (success, failure or skipped).",
			},
			[]string{"stage", "status"},
		),
		completedAt: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pipeline",
				Name:      "last_completion_timestamp_seconds",
				Help:      "When the last run finished.",
			},
		),
	}
}

// PipelineExporter collects per-stage results of a single run.
// Runs are short-lived, so metrics are pushed to a Pushgateway instead of being scraped.
type PipelineExporter struct {
	command  string
	registry *prometheus.Registry

	duration    *prometheus.GaugeVec
	rows        *prometheus.GaugeVec
	completedAt prometheus.Gauge
}

func (e *PipelineExporter) ObserveRun(run *report.Run) {
	for _, s := range run.Stages {
		e.duration.With(prometheus.Labels{"stage": s.Stage}).Set(s.Duration().Seconds())

		e.observeRows(s.Stage, "success", s.Succeeded)
		e.observeRows(s.Stage, "failure", s.Failed)
		e.observeRows(s.Stage, "skipped", s.Skipped)
	}

	if !run.FinishedAt.IsZero() {
		e.completedAt.Set(float64(run.FinishedAt.Unix()))
	}
}

func (e *PipelineExporter) observeRows(stage, status string, count int) {
	e.rows.
		With(prometheus.Labels{
			"stage":  stage,
			"status": status,
		}).
		Set(float64(count))
}

// Push replaces metrics of the command group on the Pushgateway.
func (e *PipelineExporter) Push(ctx context.Context, url string) error {
	err := push.New(url, JobName).
		Grouping("command", e.command).
		Gatherer(e.registry).
		PushContext(ctx)
	if err != nil {
		return errors.Wrap(err, "push failed")
	}

	return nil
}
