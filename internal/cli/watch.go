package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hermes-router/hermes/internal/status"
	"github.com/hermes-router/hermes/internal/statusui"
)

// newWatchCmd opens a live terminal dashboard over the status snapshot a
// running `hermes run` process persists on every tick.
func newWatchCmd() *cobra.Command {
	var statusPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open a live dashboard of the running hermes service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusPath == "" {
				statusPath = status.DefaultPath()
			}
			p := tea.NewProgram(statusui.New(statusPath), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&statusPath, "status-file", "", "path to the status snapshot (default ~/.hermes/status.json)")

	return cmd
}
