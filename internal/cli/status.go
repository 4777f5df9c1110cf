package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hermes-router/hermes/internal/status"
)

// newStatusCmd reads the persisted status snapshot a running `hermes run`
// process writes on every tick (component J), for operators who want a
// point-in-time view without attaching to the service's logs.
func newStatusCmd() *cobra.Command {
	var statusPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last known state of a running hermes service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusPath == "" {
				statusPath = status.DefaultPath()
			}

			snap, err := status.Read(statusPath)
			if err != nil {
				return err
			}

			fmt.Printf("Phase:              %s\n", snap.Phase)
			fmt.Printf("Started at:         %s\n", snap.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Router ticks:       %d (last: %s)\n", snap.RouterTicks, formatOrNever(snap.LastRouterTickAt))
			fmt.Printf("Dispatcher ticks:   %d (last: %s)\n", snap.DispatcherTicks, formatOrNever(snap.LastDispatcherTickAt))
			fmt.Printf("Series routed:      %d\n", snap.SeriesRouted)
			fmt.Printf("Folders dispatched: %d\n", snap.FoldersDispatched)
			fmt.Printf("Folders succeeded:  %d\n", snap.FoldersSucceeded)
			fmt.Printf("Folders failed:     %d\n", snap.FoldersFailed)
			if snap.LastError != "" {
				fmt.Printf("Last error:         %s\n", snap.LastError)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&statusPath, "status-file", "", "path to the status snapshot (default ~/.hermes/status.json)")

	return cmd
}

func formatOrNever(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}
