// Package store defines the job store contract (spec.md §4.1): durable,
// concurrency-safe persistence of Job rows with atomic lease acquisition,
// retry accounting, and the bulk/administrative operations the Control
// API exposes (spec.md §4.4).
//
// store generalizes the teacher's split Pusher/Puller/Observer/Cleaner
// interfaces into a single Store interface matching this domain's
// operation set; store/sqlstore provides the bun + SQLite implementation.
package store
