package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hermes-router/hermes/internal/config"
)

// newValidateConfigCmd loads and validates a configuration file without
// starting the service, for operators checking a change before a reload
// takes effect on the next tick (§9 "Configuration hot reload").
func newValidateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			fmt.Printf("%s is valid: %d rule(s), %d target(s)\n", configFile, len(cfg.EnabledRules()), len(cfg.Targets))
			return nil
		},
	}

	return cmd
}
