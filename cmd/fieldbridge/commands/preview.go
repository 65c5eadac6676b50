package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teleskop/fieldbridge/transform"
)

// PreviewCmd renders the three-tier preview for one record
var PreviewCmd = &cobra.Command{
	Use:   "preview <record-id>",
	Short: "Render the three-tier preview for one record",
	Long: `Fetch one record and synthesize its migration preview: the raw source
values, the canonical values after transformation, and the projected
target record, side by side with any validation findings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		p, err := ws.sess.ComputePreview(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			out, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		pterm.DefaultHeader.Printf("Preview %s", p.RecordID)
		pterm.Println()

		rows := pterm.TableData{{"Source field", "Source value", "Target field", "Target value", ""}}
		for _, pair := range p.Pairs {
			marker := ""
			if pair.Changed {
				marker = "changed"
			}
			if !pair.Mapped {
				marker = "unmapped"
			}
			rows = append(rows, []string{
				pair.SourceFieldID,
				transform.Stringify(p.Source[pair.SourceFieldID]),
				pair.TargetFieldID,
				transform.Stringify(p.Target[pair.TargetFieldID]),
				marker,
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

		if len(p.Messages) > 0 {
			pterm.Println()
			for _, msg := range p.Messages {
				pterm.Warning.Println(msg)
			}
		}
		return nil
	},
}

func init() {
	PreviewCmd.Flags().BoolP("json", "j", false, "Output the preview as JSON")
}
