package main

import (
	"fmt"
	"text/tabwriter"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	var upSteps, downSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, migrate.Up, upSteps)
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "number of migrations to apply (0 applies all)")
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, migrate.Down, downSteps)
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back (0 rolls back all)")
	status := &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		RunE:  runMigrateStatus,
	}
	cmd.AddCommand(up, down, status)
	return cmd
}

func runMigrate(cmd *cobra.Command, dir migrate.MigrationDirection, steps int) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := db.Migrate(ctx, pool, dir, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d migrations processed\n", n)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	records, err := db.MigrationStatus(pool)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED AT")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\n", rec.Id, rec.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
