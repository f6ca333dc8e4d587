package store

import (
	"context"
	"errors"
	"time"

	"github.com/comfyqueue/scheduler/job"
)

var (
	// ErrNotFound is returned when an operation addresses a config_name or
	// id that does not exist in the store.
	ErrNotFound = errors.New("store: job not found")

	// ErrInvalidTransition is returned when an operation requires the job
	// to be in a specific status (e.g. Retry requires Failed) and it is
	// not.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// UpsertData is the set of fields a Monitor ingest (or re-ingest) supplies
// to Upsert.
type UpsertData struct {
	ConfigName string
	JobType    job.Type
	WorkflowID string
	Priority   int
	RetryLimit int
}

// CompletionUpdate carries the fields written by Complete, depending on
// success.
type CompletionUpdate struct {
	Metadata   []byte
	ErrorTrace string
}

// Stats summarizes job counts and average completed duration, backing the
// Control API's /api/stats (spec.md §4.4).
type Stats struct {
	Total              int64
	ByStatus           map[job.Status]int64
	AverageDurationSec float64
}

// QueryResult is the generic "columns + rows" shape returned by
// ExecuteSQL (REDESIGN FLAGS, spec.md §9).
type QueryResult struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
}

// Store is the durable, concurrency-safe persistence contract for Job
// rows (spec.md §4.1) plus the administrative operations the Control API
// needs (spec.md §4.4).
//
// Implementations must ensure LeaseNext is atomic: under concurrent
// callers, at most one call may return a given row (spec.md §8).
type Store interface {
	// Upsert inserts a new job row, or updates an existing one per the
	// terminal-state rules in spec.md §4.1 ("upsert").
	Upsert(ctx context.Context, data UpsertData) (int64, error)

	// LeaseNext atomically selects and leases the single pending row with
	// the lowest (priority, config_name) tuple. Returns (nil, nil) if no
	// pending row exists.
	LeaseNext(ctx context.Context, workerID string, leaseDuration time.Duration) (*job.Job, error)

	// Complete transitions a leased job to its terminal or retry state,
	// per spec.md §4.1 ("complete").
	Complete(ctx context.Context, id int64, success bool, updates CompletionUpdate) error

	// RecoverOrphans resets every Processing row whose lease has expired
	// back to Pending, returning the count recovered.
	RecoverOrphans(ctx context.Context, now time.Time) (int64, error)

	// GetByConfigName returns the job row for name, or (nil, nil) if
	// unknown.
	GetByConfigName(ctx context.Context, name string) (*job.Job, error)

	// ListByStatus returns jobs matching status ordered by (priority,
	// config_name). job.Unknown returns all jobs.
	ListByStatus(ctx context.Context, status job.Status) ([]*job.Job, error)

	// SetPriority clamps value into [job.MinPriority, job.MaxPriority] and
	// persists it. Returns ErrNotFound if name is unknown.
	SetPriority(ctx context.Context, name string, value int) error

	// Retry resets a Failed job to Pending, clearing error and lease
	// fields. Returns ErrInvalidTransition if the job is not Failed.
	Retry(ctx context.Context, name string) error

	// GodMode is shorthand for SetPriority(name, job.MinPriority).
	GodMode(ctx context.Context, name string) error

	// RetryAllFailed bulk-resets every Failed job to Pending, returning
	// the count affected.
	RetryAllFailed(ctx context.Context) (int64, error)

	// CancelAllPending marks every Pending job Cancelled, returning the
	// count affected.
	CancelAllPending(ctx context.Context) (int64, error)

	// BulkRetry resets the subset of ids currently Failed to Pending,
	// returning the count actually changed (others are left untouched).
	BulkRetry(ctx context.Context, ids []int64) (int64, error)

	// BulkDelete permanently removes the given ids, returning the count
	// actually deleted.
	BulkDelete(ctx context.Context, ids []int64) (int64, error)

	// Stats returns aggregate counts and average completed duration.
	Stats(ctx context.Context) (Stats, error)

	// ExecuteSQL runs an operator-supplied query directly against the
	// store. It is an unrestricted operational escape hatch: callers must
	// tolerate destructive writes (spec.md §4.4).
	ExecuteSQL(ctx context.Context, query string) (*QueryResult, error)
}
