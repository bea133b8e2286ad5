package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/graphex/cmd/graphex/commands"
	"github.com/teranos/graphex/logger"
)

var rootCmd = &cobra.Command{
	Use:   "graphex",
	Short: "graphex - interactive graph explorer",
	Long: `graphex - load a graph through the graph platform, query it server-side and
explore it through a tree, a summary and an embedded visual surface.

Available commands:
  explore - Start the interactive explorer and surface host
  am      - Manage graphex configuration ("I am")
  version - Show version information

Examples:
  graphex explore graph.json   # Load graph.json and start exploring
  graphex am show              # Show current configuration
  graphex am where             # Show where configuration comes from`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		// Initialize global logger before any command runs
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	// Add commands
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.ExploreCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
