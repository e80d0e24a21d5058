// internal/cli/status.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Deleranax/ccpm/pkg/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current transaction's state and progress",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, progress := mgr.Transaction.Status()

	var pending, started, completed int
	for _, p := range progress {
		switch p.Status {
		case model.StepPending:
			pending++
		case model.StepStarted:
			started++
		case model.StepCompleted:
			completed++
		}
	}

	fmt.Printf("status: %s\n", status)
	if len(progress) > 0 {
		fmt.Printf("progress: %d/%d completed (%d started, %d pending)\n", completed, len(progress), started, pending)
	}
	return nil
}
