// internal/cli/recover.go
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Deleranax/ccpm/pkg/model"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Resume a transaction left Committing by a prior crash",
	RunE:  runRecover,
}

func runRecover(cmd *cobra.Command, args []string) error {
	status, _ := mgr.Transaction.Status()
	if status != model.StatusCommitting {
		return fmt.Errorf("no transaction to recover (status is %s)", status)
	}
	if err := mgr.Transaction.Recover(context.Background()); err != nil {
		return fmt.Errorf("recover failed: %w", err)
	}
	fmt.Println("Transaction recovered")
	return nil
}
