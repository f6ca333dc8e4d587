package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"

	"github.com/comfyqueue/scheduler/config"
	"github.com/comfyqueue/scheduler/store"
	"github.com/comfyqueue/scheduler/store/sqlstore"
	"github.com/comfyqueue/scheduler/workflow"
)

// loadConfig resolves and reads the global config file, following the
// same --config-or-SCHED_ENV precedence as the original's
// get_config_and_db.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		resolved, err := config.ResolvePath("config")
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	return config.Load(path)
}

// openStore opens the sqlite-backed job store at cfg.Paths.Database,
// initializing its schema if necessary.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, *sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Paths.Database)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := sqlstore.InitSchema(ctx, db); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}

	return sqlstore.New(db), sqlDB, nil
}

func loadCatalog() (workflow.Catalog, error) {
	return workflow.LoadCatalog(workflowPath)
}
