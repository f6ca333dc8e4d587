package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comfyqueue/scheduler/executor"
	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/monitor"
)

var (
	startPort        int
	startWorkerID    string
	startConcurrency int
)

// startCmd runs the monitor, executor, and control API together in one
// process, grounded on the original's combined "start" command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run monitor, executor, and the control API together",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		st, sqlDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := metrics.New()

		m := monitor.New(st, catalog, cfg, reg, log)
		if err := m.Start(ctx); err != nil {
			return fmt.Errorf("start monitor: %w", err)
		}
		fmt.Println("monitor started")

		ec := executor.Config{
			Concurrency:   startConcurrency,
			Queue:         4,
			PollInterval:  cfg.PollInterval(),
			LeaseDuration: 10 * time.Minute,
			WorkerID:      startWorkerID,
			WorkflowDir:   "config",
		}
		ex := executor.New(st, catalog, cfg, ec, reg, log)
		if err := ex.Start(ctx); err != nil {
			return fmt.Errorf("start executor: %w", err)
		}
		fmt.Println("executor started")

		srv := newHTTPServer(st, reg, log, startPort)
		fmt.Printf("control API on http://127.0.0.1:%d\n", startPort)

		err = runHTTPServer(ctx, srv, log)

		fmt.Println("stopping services...")
		if stopErr := m.Stop(10 * time.Second); stopErr != nil {
			log.Error("monitor stop error", "err", stopErr)
		}
		if stopErr := ex.Stop(30 * time.Second); stopErr != nil {
			log.Error("executor stop error", "err", stopErr)
		}

		return err
	},
}

func init() {
	startCmd.Flags().IntVar(&startPort, "port", 8080, "control API listen port")
	startCmd.Flags().StringVar(&startWorkerID, "worker", "worker1", "worker identity recorded on leased jobs")
	startCmd.Flags().IntVar(&startConcurrency, "concurrency", 1, "number of jobs to run at once")
}
