// internal/cli/update.go
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh every registered repository's manifest and package index",
	RunE:  runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := mgr.RefreshRepositories(ctx); err != nil {
		return fmt.Errorf("refreshing repositories: %w", err)
	}
	fmt.Println("Package index updated")
	return nil
}
