// internal/cli/upgrade.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [package...]",
	Short: "Upgrade installed packages to the latest merged-index version",
	Long: `Upgrade stages each named package (or every installed package, with
no arguments) for removal and reinstallation at its latest version in the
same transaction — the reinstall carve-out of the pre-commit checks makes
this legal even though the package stays installed throughout.`,
	RunE: runUpgrade,
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	names := args
	if len(names) == 0 {
		for name := range mgr.Query.Installed("*") {
			names = append(names, name)
		}
	}

	if err := mgr.Transaction.Begin(ctx); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	upgraded := 0
	for _, name := range names {
		current, ok := mgr.Query.IsInstalled(name)
		if !ok {
			_ = mgr.Transaction.Abort()
			return fmt.Errorf("%s is not installed", name)
		}
		entry, ok := mgr.Query.Describe(name)
		if !ok || entry.LatestVersion == current.Version {
			continue
		}

		if err := mgr.Transaction.Uninstall(name); err != nil {
			_ = mgr.Transaction.Abort()
			return fmt.Errorf("staging %s for upgrade: %w", name, err)
		}
		if err := mgr.Transaction.Install(name, entry.LatestVersion, current.Wanted); err != nil {
			_ = mgr.Transaction.Abort()
			return fmt.Errorf("staging %s for upgrade: %w", name, err)
		}
		upgraded++
	}

	if upgraded == 0 {
		_ = mgr.Transaction.Abort()
		fmt.Println("Nothing to upgrade")
		return nil
	}

	if err := mgr.Transaction.ResolveDependencies(); err != nil {
		_ = mgr.Transaction.Abort()
		return fmt.Errorf("resolving dependencies: %w", err)
	}

	if err := mgr.Transaction.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
		return err
	}

	fmt.Printf("Upgraded %d package(s)\n", upgraded)
	return nil
}
