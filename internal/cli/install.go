// internal/cli/install.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installVersion string

var installCmd = &cobra.Command{
	Use:   "install [package...]",
	Short: "Stage one or more packages for installation and commit",
	Long: `Install resolves dependencies for each named package, runs the
pre-commit checks, and commits the transaction.

Examples:
  ccpm install wget
  ccpm install wget --version=1.24.0
  ccpm install python3 nodejs golang`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "specific version to install (applies to every argument)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := mgr.Transaction.Begin(ctx); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	for _, name := range args {
		if err := mgr.Transaction.Install(name, installVersion, true); err != nil {
			_ = mgr.Transaction.Abort()
			return fmt.Errorf("staging %s: %w", name, err)
		}
	}

	if err := mgr.Transaction.ResolveDependencies(); err != nil {
		_ = mgr.Transaction.Abort()
		return fmt.Errorf("resolving dependencies: %w", err)
	}

	if err := mgr.Transaction.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
		return err
	}

	fmt.Printf("Installed %d package(s)\n", len(args))
	return nil
}
