package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
	"github.com/Yahya-Abdulselam/Nabrah/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API until interrupted.

Examples:
  nabrah serve
  nabrah serve -c configs/config.yaml --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port = servePort
			if err := cfg.HTTP.Validate(); err != nil {
				return err
			}
		}

		logger, closer := app.NewLogger(cfg.Logging)
		defer closer.Close()

		logger.Info("Service starting",
			slog.String("service", app.ServiceName),
			slog.String("version", app.ServiceVersion),
		)

		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Run(ctx, a)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "override the configured HTTP port")
	rootCmd.AddCommand(serveCmd)
}
