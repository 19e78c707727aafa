package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
	"github.com/Yahya-Abdulselam/Nabrah/internal/queue"
	"github.com/Yahya-Abdulselam/Nabrah/internal/report"
)

var (
	queueStatus     string
	queueNotes      string
	queueReviewedBy string
	queueReferredTo string
	queueOutput     string
	queueInput      string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Review queue management",
	Long: `Manage the clinician review queue directly in the configured store.

Examples:
  nabrah queue list --status pending
  nabrah queue add -f intake.json
  nabrah queue update 1a2b3c4d --status referred --referred-to ENT
  nabrah queue export -o queue.csv`,
}

// openQueue opens the configured store behind a Manager.
func openQueue(cmd *cobra.Command) (*queue.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cliLogger()
	store, err := app.OpenStore(cfg.Queue, logger)
	if err != nil {
		return nil, err
	}
	printVerbose("Queue store: %s at %s", cfg.Queue.Backend, cfg.Queue.Path)
	return queue.NewManager(store, nil, logger, localMetrics()), nil
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued patients in review order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		cases, err := mgr.List(cmd.Context(), queueStatus)
		if err != nil {
			return err
		}
		if outputJSON {
			if cases == nil {
				cases = []queue.Case{}
			}
			return writeJSON(stdout(cmd), cases)
		}
		return report.Queue(stdout(cmd), cases)
	},
}

var queueShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one patient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		c, err := mgr.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(stdout(cmd), c)
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a triaged patient from a JSON intake",
	Long: `Add a patient from a JSON intake document (the POST /queue body).
Reads standard input when no file is given.

Example intake.json:
  {"triage": {"level": "RED", "confidence": 88, "flags": ["stridor"]},
   "quality": {"snr_db": 21.4, "speech_percentage": 64, "is_reliable": true}}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if queueInput != "" && queueInput != "-" {
			f, err := os.Open(queueInput)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", queueInput, err)
			}
			defer f.Close()
			r = f
		}

		var in queue.Intake
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return fmt.Errorf("failed to parse intake: %w", err)
		}

		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		c, err := mgr.Add(cmd.Context(), &in)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(stdout(cmd), c)
		}
		fmt.Fprintf(stdout(cmd), "Patient %s added to queue (priority %d)\n", c.ID, c.Priority)
		return nil
	},
}

var queueUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a patient's review status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		optional := func(name, value string) *string {
			if cmd.Flags().Changed(name) {
				return &value
			}
			return nil
		}

		c, err := mgr.UpdateStatus(cmd.Context(), args[0], queueStatus,
			optional("notes", queueNotes),
			optional("reviewed-by", queueReviewedBy),
			optional("referred-to", queueReferredTo),
		)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(stdout(cmd), c)
		}
		fmt.Fprintf(stdout(cmd), "Patient %s updated to '%s'\n", c.ID, c.Status)
		return nil
	},
}

var queueDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a patient from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "Patient %s deleted\n", args[0])
		return nil
	},
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		stats, err := mgr.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(stdout(cmd), stats)
		}
		return report.Stats(stdout(cmd), stats)
	},
}

var queueExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the queue as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openQueue(cmd)
		if err != nil {
			return err
		}
		defer mgr.Close()

		if queueOutput == "" || queueOutput == "-" {
			return mgr.Export(cmd.Context(), stdout(cmd))
		}

		f, err := os.Create(queueOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", queueOutput, err)
		}
		if err := mgr.Export(cmd.Context(), f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		printVerbose("Wrote %s", queueOutput)
		return nil
	},
}

func init() {
	queueListCmd.Flags().StringVarP(&queueStatus, "status", "s", "", "filter by status: pending, reviewing, referred, completed")

	queueAddCmd.Flags().StringVarP(&queueInput, "file", "f", "", "intake JSON file (default: stdin)")

	queueUpdateCmd.Flags().StringVarP(&queueStatus, "status", "s", "", "new status: pending, reviewing, referred, completed")
	queueUpdateCmd.Flags().StringVar(&queueNotes, "notes", "", "clinician notes")
	queueUpdateCmd.Flags().StringVar(&queueReviewedBy, "reviewed-by", "", "reviewer name")
	queueUpdateCmd.Flags().StringVar(&queueReferredTo, "referred-to", "", "referral destination")
	queueUpdateCmd.MarkFlagRequired("status")

	queueExportCmd.Flags().StringVarP(&queueOutput, "output", "o", "", "output file (default: stdout)")

	queueCmd.AddCommand(queueListCmd, queueShowCmd, queueAddCmd, queueUpdateCmd, queueDeleteCmd, queueStatsCmd, queueExportCmd)
	rootCmd.AddCommand(queueCmd)
}
