// internal/cli/repo.go
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage registered repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Register a repository by its manifest URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := mgr.AddRepository(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("adding repository: %w", err)
		}
		fmt.Printf("Added %s (%s), priority %d\n", repo.Name, repo.ID, repo.Priority)
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Unregister a repository by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mgr.Repositories.Remove(args[0]); err != nil {
			return fmt.Errorf("removing repository: %w", err)
		}
		fmt.Println("Removed")
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, repo := range mgr.Repositories.List() {
			fmt.Printf("%s\t%s\t%s\tpriority=%d\n", repo.ID, repo.Name, repo.URL, repo.Priority)
		}
		return nil
	},
}

func init() {
	repoCmd.AddCommand(repoAddCmd, repoRemoveCmd, repoListCmd)
}
