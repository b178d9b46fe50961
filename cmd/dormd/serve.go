package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dorm.io/dorm/gateway"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve record operations over HTTP",
		Long:  "Load the descriptor file, reconcile the database schema, and serve the record gateway.",
		// Bound at run time; serve and migrate share these keys.
		PreRunE: bindStoreFlags,
		RunE:    runServe,
	}

	cmd.Flags().String("listen", "", "listen address (host:port)")
	cmd.Flags().String("metadata", "", "path to the descriptor file")
	cmd.Flags().String("driver", "", "database driver (sqlite, postgres)")
	cmd.Flags().String("dsn", "", "database connection string")

	return cmd
}

// bindStoreFlags binds the database and metadata flags of the command that
// is actually running, so the keys resolve against its flag set and not the
// last command constructed.
func bindStoreFlags(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	for key, flag := range map[string]string{
		"metadata.path":   "metadata",
		"database.driver": "driver",
		"database.dsn":    "dsn",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	if listen := cmd.Flags().Lookup("listen"); listen != nil {
		return v.BindPFlag("server.listen", listen)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	e, err := openEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Migrate.Auto {
		if err := e.Migrator().AutoMigrate(ctx); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	srv, err := newServer(cfg, gateway.New(e))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "dormd listening on %s (%s)\n", cfg.Server.Listen, cfg.Database.Driver)
	return srv.Start(ctx)
}
