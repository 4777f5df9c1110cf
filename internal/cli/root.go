// Package cli implements the hermes command-line surface with
// github.com/spf13/cobra, the same framework and PersistentPreRun
// logging-setup pattern as the teacher's internal/cli.NewRootCmd.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version, Commit, and BuildDate are set via LDFLAGS at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	verbose    bool
	configFile string
)

// NewRootCmd builds the hermes root command: a DICOM series router and
// dispatcher operated as a long-running service, with supporting
// commands for status inspection, stale-lock removal, and configuration
// validation.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hermes",
		Short: "DICOM series router and dispatcher",
		Long:  "hermes watches an incoming folder for assembled DICOM series, routes them to staging folders by rule, and dispatches staged folders to remote PACS targets.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configFile, "config", "/etc/hermes/config.yml", "path to config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newUnlockCmd())
	root.AddCommand(newValidateConfigCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newVersionCmd())

	return root
}
