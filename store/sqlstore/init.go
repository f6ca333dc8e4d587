package sqlstore

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*jobModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createStatusPriorityIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_priority").
		Column("status", "priority", "config_name").
		IfNotExists().
		Exec(ctx)
	return err
}

func createLeaseIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_status_lease").
		Column("status", "lease_expires_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createStartTimeIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_jobs_start_time").
		Column("start_time").
		IfNotExists().
		Exec(ctx)
	return err
}

func initSchema(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createStatusPriorityIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createLeaseIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createStartTimeIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitSchema creates the jobs table and its indexes if they do not already
// exist, inside a single transaction. It is idempotent and does not
// perform destructive migrations, grounded on the teacher's sql/init.go
// InitDB.
func InitSchema(ctx context.Context, db *bun.DB) error {
	return initSchema(ctx, db)
}
