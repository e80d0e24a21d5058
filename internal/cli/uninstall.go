// internal/cli/uninstall.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var uninstallAutoRemove bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [package...]",
	Short: "Stage one or more packages for removal and commit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallAutoRemove, "auto-remove", false, "also remove orphaned dependencies")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := mgr.Transaction.Begin(ctx); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	for _, name := range args {
		if err := mgr.Transaction.Uninstall(name); err != nil {
			_ = mgr.Transaction.Abort()
			return fmt.Errorf("staging %s: %w", name, err)
		}
	}

	if err := mgr.Transaction.ResolveRequiredBy(); err != nil {
		_ = mgr.Transaction.Abort()
		return fmt.Errorf("resolving dependents: %w", err)
	}

	if uninstallAutoRemove {
		if err := mgr.Transaction.AutoRemove(); err != nil {
			_ = mgr.Transaction.Abort()
			return fmt.Errorf("auto-removing orphans: %w", err)
		}
	}

	if err := mgr.Transaction.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
		return err
	}

	fmt.Printf("Uninstalled %d package(s)\n", len(args))
	return nil
}
