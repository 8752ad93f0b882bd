package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"apiworkbench/config"
	"apiworkbench/store"
	"apiworkbench/utils"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "apiworkbench",
	Short: "API workbench server: folders of saved requests, environments and execution history",
	Long: `apiworkbench stores HTTP request definitions in nested folders, keeps named
environments of {{variables}}, executes saved or ad-hoc requests and records
their history.

Configuration is read from defaults, a .env file, apiworkbench.yaml, the
environment and finally command-line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./apiworkbench.yaml)")
	rootCmd.PersistentFlags().String("storage-driver", "", "storage backend: sqlite, postgres, mongo or memory")
	rootCmd.PersistentFlags().String("database-url", "", "sqlite or postgres DSN")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")

	rootCmd.Flags().String("port", "", "port to listen on")

	rootCmd.AddCommand(serveCmd, migrateCmd, exportCmd)
}

// loadConfig reads configuration with cmd's flags applied and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}

// openStore connects the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.Open(connectCtx, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(connectCtx); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", cfg.StorageDriver, err)
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.LogFatal("command failed", err)
	}
}
