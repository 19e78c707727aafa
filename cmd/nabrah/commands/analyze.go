package commands

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
	"github.com/Yahya-Abdulselam/Nabrah/internal/correction"
	"github.com/Yahya-Abdulselam/Nabrah/internal/report"
)

var analyzeCorrection string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.wav>",
	Short: "Acoustic analysis of a WAV recording",
	Long: `Extract acoustic features and recording quality from a WAV file.

Examples:
  nabrah analyze recording.wav
  nabrah analyze recording.wav --correction corrected --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if analyzeCorrection != "" {
			cfg.Analysis.Correction = analyzeCorrection
		}

		pipeline, err := app.NewPipeline(cfg, cliLogger(), localMetrics())
		if err != nil {
			return err
		}
		mode, err := correction.ParseMode(cfg.Analysis.Correction)
		if err != nil {
			return err
		}

		data, err := readAudio(args[0])
		if err != nil {
			return err
		}
		printVerbose("Analyzing %s (%d bytes, %s)", args[0], len(data), mode)

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Analysis.GetTimeoutDuration())
		defer cancel()

		result, err := pipeline.AnalyzeWithMode(ctx, data, mode)
		if err != nil {
			return err
		}

		if outputJSON {
			return writeJSON(stdout(cmd), result)
		}
		return report.Analysis(stdout(cmd), filepath.Base(args[0]), result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCorrection, "correction", "", "feature correction mode: raw or corrected")
	rootCmd.AddCommand(analyzeCmd)
}
