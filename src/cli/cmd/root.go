package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/sofmeright/cpdstage/src/config"
	"github.com/sofmeright/cpdstage/src/output"
	"github.com/sofmeright/cpdstage/src/store"

	// plugins register themselves in init()
	_ "github.com/sofmeright/cpdstage/src/cpd"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cpdstage",
	Short: "Build pipeline runner with copy/paste detection",
	Long:  "cpdstage runs configured plugins over project checkouts and records the build errors they report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = newLogger(cfg.Log.Level)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .cpdstage.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// newLogger builds the diagnostics logger. Output goes to stderr so stdout
// stays reserved for results.
func newLogger(level string) *log.Logger {
	if verbose {
		level = "debug"
	}
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	return &log.Logger{
		Level: log.ParseLevel(level),
		Writer: &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: output.UseColor(),
		},
	}
}

// openStore opens the configured build store.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// Execute runs the root command. An interrupt cancels running tools.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
