// Package metrics defines the scheduler's Prometheus collectors
// (spec.md's ambient observability stack, carried forward per the
// Non-goals rule that functional scope cuts never drop ambient
// concerns): job lease/completion/failure/retry, orphan-recovery and
// monitor accept/reject counters plus a job duration histogram, registered on a dedicated prometheus.Registry exposed by the
// api package at /metrics.
package metrics
