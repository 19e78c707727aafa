package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yahya-Abdulselam/Nabrah/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string
	verbose    bool
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "nabrah",
	Short: "Voice triage analysis and review queue",
	Long: `nabrah - acoustic voice analysis for remote triage.

Analyzes short WAV recordings for jitter, shimmer, HNR, speech rate,
pauses and voice breaks, transcribes them with a confidence score and
manages the clinician review queue.

The configuration file defaults to configs/config.yaml. When it does not
exist, built-in defaults and environment overrides are used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
}

// loadConfig reads the configuration file. A missing default file falls back
// to built-in defaults; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if cmd.Flags().Changed("config") || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = config.Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	printVerbose("Config file %s not found, using defaults", configPath)
	return cfg, nil
}

// cliLogger logs to stderr so command output stays pipeable.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
