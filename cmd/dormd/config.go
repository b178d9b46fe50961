package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"dorm.io/dorm"
	"dorm.io/dorm/dialects/postgres"
	"dorm.io/dorm/dialects/sqlite"
	"dorm.io/dorm/logger"
)

type config struct {
	Server struct {
		Listen       string
		CORSOrigins  []string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Database struct {
		Driver string
		DSN    string
	}
	Metadata struct {
		Path string
	}
	Migrate struct {
		Auto bool
	}
	Log struct {
		Level  string
		Format string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "dorm.db")
	v.SetDefault("metadata.path", "descriptors.json")
	v.SetDefault("migrate.auto", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// setupEnv maps config keys onto DORM_* variables, so server.listen reads
// DORM_SERVER_LISTEN.
func setupEnv(v *viper.Viper) {
	v.SetEnvPrefix("DORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func loadConfig() *config {
	v := viper.GetViper()

	cfg := &config{}
	cfg.Server.Listen = v.GetString("server.listen")
	cfg.Server.CORSOrigins = v.GetStringSlice("server.cors_origins")
	cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.DSN = v.GetString("database.dsn")
	cfg.Metadata.Path = v.GetString("metadata.path")
	cfg.Migrate.Auto = v.GetBool("migrate.auto")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	return cfg
}

func buildDialector(driver, dsn string) (dorm.Dialector, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func buildLogger(cfg *config) logger.Interface {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.Log.Format != "json" {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level := logger.Info
	switch strings.ToLower(cfg.Log.Level) {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "warn", "warning":
		level = logger.Warn
	}

	return logger.NewZerologLogger(zl, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
		LogLevel:                  level,
	})
}

// openEngine connects per the database config and registers the descriptor
// file every command operates on.
func openEngine(cfg *config) (*dorm.Engine, error) {
	dialector, err := buildDialector(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	e, err := dorm.Open(dialector, &dorm.Config{Logger: buildLogger(cfg)})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := e.RegisterFile(cfg.Metadata.Path); err != nil {
		return nil, err
	}
	return e, nil
}
