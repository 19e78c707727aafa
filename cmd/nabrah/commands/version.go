package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(stdout(cmd), "%s %s\n", app.ServiceName, app.ServiceVersion)
		if verbose {
			fmt.Fprintf(stdout(cmd), "  go:     %s\n", runtime.Version())
			fmt.Fprintf(stdout(cmd), "  config: %s\n", configPath)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
