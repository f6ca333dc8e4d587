package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/monitor"
)

var monitorOnce bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the processing directory and ingest job configs",
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

		m := monitor.New(st, catalog, cfg, metrics.New(), log)

		if monitorOnce {
			results, err := m.ScanOnce(cmd.Context())
			if err != nil {
				return err
			}
			var accepted, rejected int
			for _, r := range results {
				if r.Status == "accepted" {
					accepted++
				} else {
					rejected++
				}
			}
			fmt.Printf("accepted: %d, rejected: %d\n", accepted, rejected)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("watching %s\n", cfg.Paths.JobsProcessing)
		if err := m.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		fmt.Println("stopping monitor...")
		return m.Stop(10 * time.Second)
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "scan once instead of watching continuously")
}
