package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streaks/internal/config"
	"github.com/comitanigiacomo/kanso-streaks/internal/logger"
)

var Version = "dev"

// globalFlags override the environment for a single invocation.
type globalFlags struct {
	envFile  string
	driver   string
	dsn      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "kansoctl",
		Short:         "Administer the Kanso streak store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "optional .env file to load")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "db-driver", "", "database driver (sqlite, pgx, postgres); overrides DB_DRIVER")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "db-dsn", "", "SQLite path or postgres URL; overrides the DB_* variables")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level; overrides LOG_LEVEL")

	rootCmd.AddCommand(migrateCmd(flags))
	rootCmd.AddCommand(seedCmd(flags))
	rootCmd.AddCommand(auditCmd(flags))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *globalFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func (f *globalFlags) target(cfg *config.Config) (driver, dsn string) {
	driver, dsn = cfg.DBDriver, cfg.DSN()
	if f.driver != "" {
		driver = f.driver
	}
	if f.dsn != "" {
		dsn = f.dsn
	}
	return driver, dsn
}

// openStore connects and brings the schema up to date.
func (f *globalFlags) openStore(ctx context.Context) (*repository.SQLStore, *zap.Logger, error) {
	cfg, log, err := f.load()
	if err != nil {
		return nil, nil, err
	}

	driver, dsn := f.target(cfg)
	store, err := repository.OpenSQLStore(ctx, driver, dsn)
	if err != nil {
		log.Error("failed to open database", zap.String("driver", driver), zap.Error(err))
		_ = log.Sync()
		return nil, nil, err
	}
	return store, log, nil
}
