package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teleskop/fieldbridge/cmd/fieldbridge/commands"
	"github.com/teleskop/fieldbridge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "fieldbridge",
	Short: "fieldbridge - Field mapping and transformation preview engine",
	Long: `fieldbridge - Preview test-asset migrations between test-management schemas.

fieldbridge maps fields between a source and a target schema, attaches
per-field transformations, and synthesizes side-by-side previews of what
each record would look like after migration, without writing anything to
the target system.

Available commands:
  automap  - Propose mappings between the source and target schemas
  validate - Check the mapping set for coverage and type compatibility
  preview  - Render the three-tier preview for one record
  batch    - Load a page of previews and summarize their states
  serve    - Start the batch-state HTTP/WebSocket server
  version  - Show version information

Examples:
  fieldbridge automap --source testrail --target zephyr
  fieldbridge validate --mappings mappings.toml
  fieldbridge preview TC-1042 --mappings mappings.toml
  fieldbridge batch --page 2
  fieldbridge serve`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to fieldbridge.toml (default: walk up from cwd)")
	rootCmd.PersistentFlags().String("source", "", "Source provider id (overrides config)")
	rootCmd.PersistentFlags().String("target", "", "Target provider id (overrides config)")
	rootCmd.PersistentFlags().String("mappings", "", "Path to a TOML mapping file (default: stored set)")

	rootCmd.AddCommand(commands.AutomapCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.PreviewCmd)
	rootCmd.AddCommand(commands.BatchCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
