package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/comfyqueue/scheduler/job"
)

var queueStatusFilter string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the job queue",
}

var queueLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List jobs in the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, sqlDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		status := job.Unknown
		if queueStatusFilter != "" {
			status, err = job.ParseStatus(queueStatusFilter)
			if err != nil {
				return err
			}
		}

		jobs, err := st.ListByStatus(cmd.Context(), status)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("no jobs found")
			return nil
		}

		fmt.Printf("%-30s %-8s %-10s %8s %8s\n", "CONFIG NAME", "TYPE", "STATUS", "PRIORITY", "RETRIES")
		for _, j := range jobs {
			fmt.Printf("%-30s %-8s %-10s %8d %8d\n", j.ConfigName, j.JobType.String(), j.Status.String(), j.Priority, j.RetriesAttempted)
		}
		return nil
	},
}

var queueSetPriorityCmd = &cobra.Command{
	Use:   "set-priority <config-name> <priority>",
	Short: "Set a job's priority",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q: %w", args[1], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, sqlDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := st.SetPriority(cmd.Context(), args[0], priority); err != nil {
			return err
		}
		fmt.Printf("priority updated to %d for %s\n", job.ClampPriority(priority), args[0])
		return nil
	},
}

var queueGodModeCmd = &cobra.Command{
	Use:   "god-mode <config-name>",
	Short: "Set a job's priority to the highest level (1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, sqlDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := st.GodMode(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("god mode applied to %s (priority = %d)\n", args[0], job.MinPriority)
		return nil
	},
}

func init() {
	queueLsCmd.Flags().StringVarP(&queueStatusFilter, "status", "s", "", "filter by status (pending/processing/done/failed/cancelled)")
	queueCmd.AddCommand(queueLsCmd, queueSetPriorityCmd, queueGodModeCmd)
}
