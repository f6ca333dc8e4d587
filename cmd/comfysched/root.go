package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	workflowPath string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "comfysched",
	Short: "ComfyUI job scheduler",
	Long: `comfysched watches a directory for job configuration files, drives
them through a ComfyUI instance, and exposes an operator control API
over the resulting queue.

Core commands:
  monitor   watch the processing directory and ingest job configs
  executor  lease and run jobs against ComfyUI
  serve     run the control API only
  start     run monitor, executor, and the control API together
  queue     inspect and manage the job queue from the command line`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "global config file (default: resolved from SCHED_ENV)")
	rootCmd.PersistentFlags().StringVar(&workflowPath, "workflows", "config/workflows.yaml", "workflow catalog file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(monitorCmd, executorCmd, serveCmd, startCmd, queueCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
