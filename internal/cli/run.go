package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hermes-router/hermes/internal/clock"
	"github.com/hermes-router/hermes/internal/service"
	"github.com/hermes-router/hermes/internal/status"
)

// newRunCmd starts the repeated-timer shell (router tick + dispatcher
// tick) and blocks until SIGINT/SIGTERM, mirroring
// original_source/dispatcher.py's signal.signal(SIGTERM, ...) shutdown
// hook with context.Context cancellation instead of a module-level flag.
func newRunCmd() *cobra.Command {
	var (
		workers      int
		queueSize    int
		statusPath   string
		instanceName string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the routing and dispatch service until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if statusPath == "" {
				statusPath = status.DefaultPath()
			}
			tracker := status.New(statusPath)

			svc := service.New(ctx, service.Options{
				ConfigPath:      configFile,
				Clock:           clock.Real{},
				DispatchWorkers: workers,
				QueueSize:       queueSize,
				Tracker:         tracker,
				InstanceName:    instanceName,
			})

			svc.Run(ctx)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "number of concurrent transfer workers")
	cmd.Flags().IntVar(&queueSize, "queue-size", 256, "transfer job queue capacity")
	cmd.Flags().StringVar(&statusPath, "status-file", "", "path to persist status snapshots (default ~/.hermes/status.json)")
	cmd.Flags().StringVar(&instanceName, "name", "hermes", "instance name reported in bookkeeper events")

	return cmd
}
