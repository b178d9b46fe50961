package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Reconcile the database schema with the descriptor file",
		Long:    "Create missing tables and columns for every registered entity and relationship. Nothing is ever dropped.",
		PreRunE: bindStoreFlags,
		RunE:    runMigrate,
	}

	cmd.Flags().Bool("dry-run", false, "print the planned DDL without executing it")
	cmd.Flags().String("metadata", "", "path to the descriptor file")
	cmd.Flags().String("driver", "", "database driver (sqlite, postgres)")
	cmd.Flags().String("dsn", "", "database connection string")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	e, err := openEngine(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		plan, err := e.Migrator().Plan(ctx)
		if err != nil {
			return fmt.Errorf("planning migration: %w", err)
		}
		if len(plan) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}
		for _, ddl := range plan {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", ddl)
		}
		return nil
	}

	if err := e.Migrator().AutoMigrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}
