package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job results.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// JobMetrics records runs of the maintenance worker's scheduled jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	touched  *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job executions by result.",
	}, []string{"job", "result"})
	touched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_records_total",
		Help: "Records changed by maintenance jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, touched)
	return &JobMetrics{duration: duration, runs: runs, touched: touched}
}

func (j *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (j *JobMetrics) IncRun(job, result string) {
	if j == nil || j.runs == nil {
		return
	}
	j.runs.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Inc()
}

// AddRecords counts rows a job changed in one run.
func (j *JobMetrics) AddRecords(job string, n int) {
	if j == nil || j.touched == nil || n <= 0 {
		return
	}
	j.touched.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
