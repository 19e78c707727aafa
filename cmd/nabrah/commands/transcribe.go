package commands

import (
	"github.com/spf13/cobra"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
	"github.com/Yahya-Abdulselam/Nabrah/internal/report"
	"github.com/Yahya-Abdulselam/Nabrah/internal/transcription"
)

var transcribeLanguage string

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Transcribe a WAV recording with confidence",
	Long: `Transcribe a WAV file through the configured transcription backend.

The language selects the model: en uses the English-only model, ar the
multilingual one.

Examples:
  nabrah transcribe recording.wav
  nabrah transcribe recording.wav --language ar --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := transcription.ValidateLanguage(transcribeLanguage); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := readAudio(args[0])
		if err != nil {
			return err
		}

		printVerbose("Backend: %s, model: %s", cfg.Transcription.Backend, transcription.ModelFor(transcribeLanguage))

		service := app.NewTranscriber(cfg.Transcription, cliLogger(), localMetrics())
		result, err := service.Transcribe(cmd.Context(), data, transcribeLanguage)
		if err != nil {
			return err
		}

		if outputJSON {
			return writeJSON(stdout(cmd), result)
		}
		return report.Transcription(stdout(cmd), result)
	},
}

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeLanguage, "language", "l", "en", "recording language: en or ar")
	rootCmd.AddCommand(transcribeCmd)
}
