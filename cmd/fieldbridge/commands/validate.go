package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ValidateCmd checks the active mapping set
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the mapping set for coverage and type compatibility",
	Long: `Validate the active mapping set against both schemas. Unmapped required
target fields are reported first in a single aggregated message, followed
by unknown-field and type-compatibility findings in mapping order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		messages, err := ws.sess.ValidateMappings(cmd.Context())
		if err != nil {
			return err
		}

		if len(messages) == 0 {
			pterm.Success.Printf("Mapping set is valid (%d mapping(s))\n", len(ws.sess.Mappings()))
			return nil
		}

		for _, msg := range messages {
			pterm.Warning.Println(msg)
		}
		pterm.Info.Printf("%d finding(s)\n", len(messages))
		return nil
	},
}
