package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// folderLockSentinel is the ".LOCK" name internal/router.lockFolder
// creates inside a staging folder.
const folderLockSentinel = ".LOCK"

// newUnlockCmd removes a stale lock sentinel. Since locks here live on a
// shared filesystem rather than under a single host's process table
// (internal/lockfile has no stale-lock reclamation by design), clearing
// one is always an explicit operator decision, never automatic.
func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock <path>",
		Short: "Remove a stale .LOCK sentinel",
		Long:  "Removes a .LOCK sentinel left behind by a crashed router or dispatcher process. <path> may be a folder (its .LOCK file is removed) or the sentinel file itself.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("stat %s: %w", target, err)
			}

			lockPath := target
			if info.IsDir() {
				lockPath = filepath.Join(target, folderLockSentinel)
			}

			if _, err := os.Stat(lockPath); err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintf(os.Stdout, "No lock found at %s\n", lockPath)
					return nil
				}
				return fmt.Errorf("stat %s: %w", lockPath, err)
			}

			if err := os.Remove(lockPath); err != nil {
				return fmt.Errorf("remove lock %s: %w", lockPath, err)
			}

			fmt.Fprintf(os.Stdout, "Removed lock %s\n", lockPath)
			return nil
		},
	}

	return cmd
}
