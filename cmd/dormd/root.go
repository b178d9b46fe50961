package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root dormd command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dormd",
		Short:         "dormd — metadata-driven record server",
		Long:          "dormd serves generic record, soft-delete and relationship operations over entities declared in a descriptor file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("log-level", "", "log level (silent, error, warn, info)")
	root.PersistentFlags().String("log-format", "", "log format (console, json)")
	_ = viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	setDefaults(v)
	setupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("dormd")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dormd")

	// No config file is fine, defaults and env vars still apply. Parse or
	// permission errors must surface.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}
