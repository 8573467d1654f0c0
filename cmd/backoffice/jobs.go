package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/backoffice/jobs"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Interact with background jobs",
	}
	trigger := &cobra.Command{
		Use:   "trigger",
		Short: "Enqueue a job for the worker",
	}

	var date string
	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Enqueue a report snapshot (defaults to yesterday)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newJobsClient()
			if err != nil {
				return err
			}
			defer client.Close()
			info, err := client.EnqueueSnapshot(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	snapshot.Flags().StringVar(&date, "date", "", "report date (YYYY-MM-DD)")

	warmup := &cobra.Command{
		Use:   "warmup",
		Short: "Enqueue an analytics cache warmup",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newJobsClient()
			if err != nil {
				return err
			}
			defer client.Close()
			info, err := client.EnqueueWarmup(cmd.Context(), "cli")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}

	trigger.AddCommand(snapshot, warmup)
	cmd.AddCommand(trigger)
	return cmd
}

func newJobsClient() (*jobs.Client, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), nil
}
