package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satslab/satslab/internal/config"
	"github.com/satslab/satslab/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "satslab",
	Short: "Learn Bitcoin by doing",
	Long:  "SatsLab is a terminal app and HTTP service that walks learners through hands-on Bitcoin modules.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SATSLAB_DB env var)")
	rootCmd.PersistentFlags().String("content", "", "Path to a module catalog JSON file (defaults to the built-in modules)")
	rootCmd.PersistentFlags().Bool("offline", false, "Skip block explorer lookups (overrides SATSLAB_OFFLINE)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then SATSLAB_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// loadConfig reads the environment and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Explorer.Offline = true
	}
	return cfg, nil
}

// openStore resolves the database path and opens it.
func openStore(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
