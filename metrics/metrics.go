package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the scheduler's collectors on a private
// prometheus.Registry, rather than the global default, so multiple
// Servers in the same process (e.g. in tests) never collide on
// duplicate registration.
type Registry struct {
	reg *prometheus.Registry

	JobsLeased     prometheus.Counter
	JobsCompleted  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobsRetried    prometheus.Counter
	OrphansRecovered prometheus.Counter
	MonitorAccepted prometheus.Counter
	MonitorRejected prometheus.Counter

	JobDuration prometheus.Histogram
}

// New creates a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		JobsLeased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_leased_total",
			Help: "Number of jobs leased by an executor.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_completed_total",
			Help: "Number of jobs that completed successfully.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_failed_total",
			Help: "Number of jobs that reached the Failed terminal state.",
		}),
		JobsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_jobs_retried_total",
			Help: "Number of job executions that failed but were returned to Pending for retry.",
		}),
		OrphansRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_orphans_recovered_total",
			Help: "Number of Processing jobs recovered after their lease expired.",
		}),
		MonitorAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_monitor_accepted_total",
			Help: "Number of job configuration files accepted by the monitor.",
		}),
		MonitorRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_monitor_rejected_total",
			Help: "Number of job configuration files rejected by the monitor.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of completed job executions.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.JobsLeased,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsRetried,
		m.OrphansRecovered,
		m.MonitorAccepted,
		m.MonitorRejected,
		m.JobDuration,
	)
	return m
}

// Registerer exposes the underlying registry for promhttp.HandlerFor.
func (m *Registry) Registerer() *prometheus.Registry {
	return m.reg
}
