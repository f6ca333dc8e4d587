package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/store"
)

// Store is a bun + SQLite implementation of store.Store, adapted from the
// teacher's sql package (see doc.go).
type Store struct {
	db *bun.DB
}

// New wraps db as a Store. InitSchema must be called (or have been
// called) before use.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Upsert(ctx context.Context, data store.UpsertData) (int64, error) {
	var id int64
	err := withLockRetry(ctx, func() error {
		var existing jobModel
		err := s.db.NewSelect().Model(&existing).Where("config_name = ?", data.ConfigName).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			m := &jobModel{
				ConfigName: data.ConfigName,
				JobType:    data.JobType.String(),
				WorkflowID: data.WorkflowID,
				Priority:   job.ClampPriority(data.Priority),
				Status:     uint8(job.Pending),
				RetryLimit: data.RetryLimit,
			}
			if _, ierr := s.db.NewInsert().Model(m).Returning("id").Exec(ctx, &id); ierr != nil {
				return ierr
			}
			return nil
		case err != nil:
			return err
		}

		if job.Status(existing.Status) == job.Processing && existing.HasActiveLease(time.Now()) {
			id = existing.ID
			return nil
		}

		id = existing.ID
		priority := job.ClampPriority(data.Priority)

		// Re-ingesting a known config_name never resurrects or rewinds a
		// terminal job wholesale — only Failed and Cancelled rows are reset
		// to Pending, and even then only status/retries/priority are
		// touched. Grounded on
		// original_source/comfyui_agent/db_manager.py's upsert_job.
		switch job.Status(existing.Status) {
		case job.Done:
			_, uerr := s.db.NewUpdate().
				Model((*jobModel)(nil)).
				Set("priority = ?", priority).
				Set("updated_at = ?", time.Now()).
				Where("id = ?", existing.ID).
				Exec(ctx)
			return uerr
		case job.Failed, job.Cancelled:
			_, uerr := s.db.NewUpdate().
				Model((*jobModel)(nil)).
				Set("status = ?", uint8(job.Pending)).
				Set("retries_attempted = ?", 0).
				Set("priority = ?", priority).
				Set("updated_at = ?", time.Now()).
				Where("id = ?", existing.ID).
				Exec(ctx)
			return uerr
		default:
			// Pending, or an orphaned Processing row recovered below its
			// lease: only the fields the new file actually supplies are
			// updated. Status, run_count, retries_attempted, and metadata
			// are left exactly as they were.
			_, uerr := s.db.NewUpdate().
				Model((*jobModel)(nil)).
				Set("job_type = ?", data.JobType.String()).
				Set("workflow_id = ?", data.WorkflowID).
				Set("priority = ?", priority).
				Set("retry_limit = ?", data.RetryLimit).
				Set("updated_at = ?", time.Now()).
				Where("id = ?", existing.ID).
				Exec(ctx)
			return uerr
		}
	})
	return id, err
}

// HasActiveLease mirrors job.Job.HasActiveLease for the row model, used
// before toJob conversion during Upsert.
func (m *jobModel) HasActiveLease(now time.Time) bool {
	return job.Status(m.Status) == job.Processing && m.LeaseExpiresAt != nil && m.LeaseExpiresAt.After(now)
}

func (s *Store) LeaseNext(ctx context.Context, workerID string, leaseDuration time.Duration) (*job.Job, error) {
	var result *job.Job
	err := withLockRetry(ctx, func() error {
		now := time.Now()
		leaseUntil := now.Add(leaseDuration)

		subQuery := s.db.NewSelect().
			Model((*jobModel)(nil)).
			Column("id").
			Where("status = ?", uint8(job.Pending)).
			Order("priority ASC", "config_name ASC").
			Limit(1)

		var rows []*jobModel
		err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", uint8(job.Processing)).
			Set("worker_id = ?", workerID).
			Set("lease_expires_at = ?", leaseUntil).
			Set("start_time = ?", now).
			Set("run_count = run_count + 1").
			Set("updated_at = ?", now).
			Where("id IN (?)", subQuery).
			Returning("*").
			Scan(ctx, &rows)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			result = nil
			return nil
		}
		result = rows[0].toJob()
		return nil
	})
	return result, err
}

func (s *Store) Complete(ctx context.Context, id int64, success bool, updates store.CompletionUpdate) error {
	return withLockRetry(ctx, func() error {
		var m jobModel
		if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		now := time.Now()
		var duration *float64
		if m.StartTime != nil {
			d := now.Sub(*m.StartTime).Seconds()
			duration = &d
		}

		query := s.db.NewUpdate().Model(&m).WherePK()
		if success {
			query.Set("status = ?", uint8(job.Done))
			query.Set("metadata = ?", updates.Metadata)
			query.Set("error_trace = ?", "")
		} else if m.RetriesAttempted < m.RetryLimit {
			query.Set("status = ?", uint8(job.Pending))
			query.Set("retries_attempted = retries_attempted + 1")
			query.Set("error_trace = ?", updates.ErrorTrace)
			query.Set("worker_id = ?", "")
			query.Set("lease_expires_at = NULL")
			query.Set("start_time = NULL")
			duration = nil
		} else {
			query.Set("status = ?", uint8(job.Failed))
			query.Set("error_trace = ?", updates.ErrorTrace)
		}
		query.Set("end_time = ?", now)
		query.Set("duration_seconds = ?", duration)
		query.Set("updated_at = ?", now)

		res, err := query.Exec(ctx)
		if err != nil {
			return err
		}
		if !isAffected(res) {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) RecoverOrphans(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := withLockRetry(ctx, func() error {
		res, err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", uint8(job.Pending)).
			Set("worker_id = ?", "").
			Set("lease_expires_at = NULL").
			Set("start_time = NULL").
			Set("updated_at = ?", now).
			Where("status = ?", uint8(job.Processing)).
			Where("lease_expires_at < ?", now).
			Exec(ctx)
		if err != nil {
			return err
		}
		count = getAffected(res)
		return nil
	})
	return count, err
}

func (s *Store) GetByConfigName(ctx context.Context, name string) (*job.Job, error) {
	var m jobModel
	err := s.db.NewSelect().Model(&m).Where("config_name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toJob(), nil
}

func (s *Store) ListByStatus(ctx context.Context, status job.Status) ([]*job.Job, error) {
	var ms []*jobModel
	query := s.db.NewSelect().Model(&ms).Order("priority ASC", "config_name ASC")
	if status != job.Unknown {
		query.Where("status = ?", uint8(status))
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return toModels(ms), nil
}

func (s *Store) SetPriority(ctx context.Context, name string, value int) error {
	return withLockRetry(ctx, func() error {
		res, err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("priority = ?", job.ClampPriority(value)).
			Set("updated_at = ?", time.Now()).
			Where("config_name = ?", name).
			Exec(ctx)
		if err != nil {
			return err
		}
		if !isAffected(res) {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) Retry(ctx context.Context, name string) error {
	return withLockRetry(ctx, func() error {
		var m jobModel
		if err := s.db.NewSelect().Model(&m).Where("config_name = ?", name).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}
		if job.Status(m.Status) != job.Failed {
			return store.ErrInvalidTransition
		}
		_, err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", uint8(job.Pending)).
			Set("retries_attempted = ?", 0).
			Set("error_trace = ?", "").
			Set("worker_id = ?", "").
			Set("lease_expires_at = NULL").
			Set("updated_at = ?", time.Now()).
			Where("id = ?", m.ID).
			Exec(ctx)
		return err
	})
}

func (s *Store) GodMode(ctx context.Context, name string) error {
	return s.SetPriority(ctx, name, job.MinPriority)
}

func (s *Store) RetryAllFailed(ctx context.Context) (int64, error) {
	var count int64
	err := withLockRetry(ctx, func() error {
		res, err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", uint8(job.Pending)).
			Set("retries_attempted = ?", 0).
			Set("error_trace = ?", "").
			Set("worker_id = ?", "").
			Set("lease_expires_at = NULL").
			Set("updated_at = ?", time.Now()).
			Where("status = ?", uint8(job.Failed)).
			Exec(ctx)
		if err != nil {
			return err
		}
		count = getAffected(res)
		return nil
	})
	return count, err
}

func (s *Store) CancelAllPending(ctx context.Context) (int64, error) {
	var count int64
	err := withLockRetry(ctx, func() error {
		res, err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", uint8(job.Cancelled)).
			Set("updated_at = ?", time.Now()).
			Where("status = ?", uint8(job.Pending)).
			Exec(ctx)
		if err != nil {
			return err
		}
		count = getAffected(res)
		return nil
	})
	return count, err
}

func (s *Store) BulkRetry(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := withLockRetry(ctx, func() error {
		res, err := s.db.NewUpdate().
			Model((*jobModel)(nil)).
			Set("status = ?", uint8(job.Pending)).
			Set("retries_attempted = ?", 0).
			Set("error_trace = ?", "").
			Set("worker_id = ?", "").
			Set("lease_expires_at = NULL").
			Set("updated_at = ?", time.Now()).
			Where("id IN (?)", bun.In(ids)).
			Where("status = ?", uint8(job.Failed)).
			Exec(ctx)
		if err != nil {
			return err
		}
		count = getAffected(res)
		return nil
	})
	return count, err
}

func (s *Store) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := withLockRetry(ctx, func() error {
		res, err := s.db.NewDelete().
			Model((*jobModel)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return err
		}
		count = getAffected(res)
		return nil
	})
	return count, err
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var rows []struct {
		Status uint8 `bun:"status"`
		Count  int64 `bun:"count"`
	}
	if err := s.db.NewSelect().
		Model((*jobModel)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS count").
		Group("status").
		Scan(ctx, &rows); err != nil {
		return store.Stats{}, err
	}

	stats := store.Stats{ByStatus: make(map[job.Status]int64, len(rows))}
	for _, r := range rows {
		stats.ByStatus[job.Status(r.Status)] = r.Count
		stats.Total += r.Count
	}

	var avg sql.NullFloat64
	if err := s.db.NewSelect().
		Model((*jobModel)(nil)).
		ColumnExpr("avg(duration_seconds)").
		Where("status = ?", uint8(job.Done)).
		Scan(ctx, &avg); err != nil {
		return store.Stats{}, err
	}
	if avg.Valid {
		stats.AverageDurationSec = avg.Float64
	}
	return stats, nil
}

// ExecuteSQL runs an operator-supplied statement directly against the
// connection. Statements beginning with a SELECT keyword are scanned as
// rows; anything else is executed and reports rows affected. This is an
// unrestricted administrative escape hatch (spec.md §4.4): the caller is
// trusted, exactly as the original ui_server.py's raw SQL endpoint was.
func (s *Store) ExecuteSQL(ctx context.Context, query string) (*store.QueryResult, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		res, execErr := conn.ExecContext(ctx, query)
		if execErr != nil {
			return nil, fmt.Errorf("sqlstore: execute sql: %w", err)
		}
		affected, _ := res.RowsAffected()
		return &store.QueryResult{RowsAffected: affected}, nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &store.QueryResult{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, vals)
	}
	return result, rows.Err()
}
