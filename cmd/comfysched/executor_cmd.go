package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comfyqueue/scheduler/executor"
	"github.com/comfyqueue/scheduler/metrics"
)

var (
	executorWorkerID     string
	executorConcurrency  int
	executorLeaseSeconds int
	executorQueueSize    int
)

var executorCmd = &cobra.Command{
	Use:   "executor",
	Short: "Lease and run jobs against ComfyUI",
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

		ec := executor.Config{
			Concurrency:   executorConcurrency,
			Queue:         executorQueueSize,
			PollInterval:  cfg.PollInterval(),
			LeaseDuration: time.Duration(executorLeaseSeconds) * time.Second,
			WorkerID:      executorWorkerID,
			WorkflowDir:   "config",
		}
		ex := executor.New(st, catalog, cfg, ec, metrics.New(), log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("worker %s against %s\n", executorWorkerID, cfg.ComfyUI.APIBaseURL)
		if err := ex.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		fmt.Println("stopping executor...")
		return ex.Stop(30 * time.Second)
	},
}

func init() {
	executorCmd.Flags().StringVar(&executorWorkerID, "worker", "worker1", "worker identity recorded on leased jobs")
	executorCmd.Flags().IntVar(&executorConcurrency, "concurrency", 1, "number of jobs to run at once")
	executorCmd.Flags().IntVar(&executorQueueSize, "queue", 4, "size of the internal job buffer")
	executorCmd.Flags().IntVar(&executorLeaseSeconds, "lease-seconds", 600, "lease duration granted per job")
}
