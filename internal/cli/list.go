// internal/cli/list.go
package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listAvailable bool

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List installed packages, or available ones with --available",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAvailable, "available", false, "list the merged package index instead of installed packages")
}

func runList(cmd *cobra.Command, args []string) error {
	pattern := "*"
	if len(args) == 1 {
		pattern = args[0]
	}

	if listAvailable {
		idx := mgr.Query.Available(pattern)
		names := make([]string, 0, len(idx))
		for name := range idx {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s\t%s\n", name, idx[name].LatestVersion)
		}
		return nil
	}

	installed := mgr.Query.Installed(pattern)
	names := make([]string, 0, len(installed))
	for name := range installed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pkg := installed[name]
		marker := " "
		if pkg.Wanted {
			marker = "*"
		}
		fmt.Printf("%s %s\t%s\n", marker, name, pkg.Version)
	}
	return nil
}
