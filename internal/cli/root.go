// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Deleranax/ccpm"
	"github.com/Deleranax/ccpm/pkg/config"
	"github.com/Deleranax/ccpm/pkg/event"
)

var (
	cfgFile string
	dataDir string
	debug   bool

	cfg *config.Config
	mgr *ccpm.Manager
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "ccpm",
	Short: "Transactional package manager for sandboxed environments",
	Long: `ccpm - transactional package manager

Installs, removes, and upgrades packages against one or more repositories
through a crash-safe, journalled transaction, recoverable after a crash at
any step.`,
	Version: "0.1.0",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ccpm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the configured data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(recoverCmd)
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if debug {
		cfg.Debug = true
	}

	mgr, err = ccpm.NewManager(cfg, eventSink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initialising engine: %v\n", err)
		os.Exit(1)
	}
}

// eventSink renders every engine event as a line on stdout when --debug is
// set, the CLI's only consumer of the event bus.
func eventSink(name event.Name, args ...any) {
	if cfg != nil && cfg.Debug {
		fmt.Fprintf(os.Stdout, "%s %v\n", name, args)
	}
}
