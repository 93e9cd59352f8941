// Package telemetry exposes conversion pipeline metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsTotal counts finished jobs by direction and terminal outcome.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maxbridge_jobs_total",
		Help: "Conversion jobs by direction and outcome.",
	}, []string{"direction", "outcome"})

	// JobsRejected counts submissions refused at admission.
	JobsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maxbridge_jobs_rejected_total",
		Help: "Job submissions rejected because another job was active.",
	})

	// StageFailures counts which pipeline stage a failed job died in.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maxbridge_stage_failures_total",
		Help: "Job failures by pipeline stage.",
	}, []string{"stage"})

	// JobSeconds observes wall-clock duration of finished jobs.
	JobSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "maxbridge_job_duration_seconds",
		Help:    "Wall-clock duration of conversion jobs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
