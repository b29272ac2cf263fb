// Package metrics holds the Prometheus collectors for supervised jobs and
// build attempts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels of revsweep_jobs_total.
const (
	// OutcomeExit is a job that exited on its own, with any status.
	OutcomeExit = "exit"
	// OutcomeTimeout is a job interrupted at its deadline.
	OutcomeTimeout = "timeout"
	// OutcomeLaunch is a job that could not be started.
	OutcomeLaunch = "launch_error"
)

var (
	// Registry holds every revsweep collector.
	Registry = prometheus.NewRegistry()

	jobsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsweep_jobs_started_total",
			Help: "Total number of supervised jobs launched.",
		},
		[]string{"kind"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsweep_jobs_total",
			Help: "Total number of supervised jobs by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "revsweep_job_duration_seconds",
			Help: "Wall-clock duration of supervised jobs.",
			// 1s to roughly one day.
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
		[]string{"kind"},
	)

	builds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsweep_builds_total",
			Help: "Build candidate attempts by build system and result.",
		},
		[]string{"system", "result"},
	)
)

func init() {
	Registry.MustRegister(jobsStarted, jobsFinished, jobDuration, builds)
}

// JobStarted records a job launch.
func JobStarted(kind string) {
	jobsStarted.WithLabelValues(kind).Inc()
}

// JobFinished records the outcome and duration of a job.
func JobFinished(kind, outcome string, d time.Duration) {
	jobsFinished.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeLaunch {
		jobDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// BuildAttempted records one build candidate attempt.
func BuildAttempted(system string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	builds.WithLabelValues(system, result).Inc()
}

// Handler returns an HTTP handler exposing Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
