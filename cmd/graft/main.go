package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"graft/internal/config"
	"graft/internal/logging"
	"graft/pkg/graft"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
	scriptDir  string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "graft - live code updates for interpreted Go units",
	Long: `graft loads Go source units through an interpreter, detects which loaded
units have newer source than what is running, and reloads them in dependency
order while keeping existing functions, types and instances alive.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if scriptDir != "" {
			cfg.Script.Dir = scriptDir
		}
		if verbose {
			cfg.Logging.Level = "debug"
			cfg.Logging.DebugMode = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "graft.yaml", "Config file")
	rootCmd.PersistentFlags().StringVarP(&scriptDir, "dir", "d", "", "Script directory (overrides script.dir)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout (scan, call)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newEngine builds an engine from the loaded config; a script dir is required.
func newEngine() (*graft.Engine, error) {
	if cfg.Script.Dir == "" {
		return nil, fmt.Errorf("no script directory: pass --dir or set script.dir")
	}
	return graft.New(cfg)
}

// unitNames returns names, or every unit under the script dir when empty.
func unitNames(ctx context.Context, eng *graft.Engine, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	return eng.Script().Discover(ctx)
}
