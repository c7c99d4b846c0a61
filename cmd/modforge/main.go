// Command modforge is the CLI for the continuous error repair daemon:
// run the repair loop, trigger one-off scans, and inspect learned
// patterns and runtime status.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/X-Niter/ModForge-sub004/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "modforge",
	Short: "Continuous error repair daemon",
	Long: `ModForge watches a project's build, classifies compilation errors,
and repairs them automatically: learned patterns first, an AI fallback
when no pattern matches. Successful fallback fixes are stored as new
patterns, so the daemon gets cheaper over time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
