package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teleskop/fieldbridge/store"
)

// AutomapCmd proposes mappings between the configured schemas
var AutomapCmd = &cobra.Command{
	Use:   "automap",
	Short: "Propose mappings between the source and target schemas",
	Long: `Propose field mappings: target fields with an identically-named source
field are paired directly, then required target fields still unmapped are
paired with the first source field whose name fuzzily matches. Existing
mappings are never reassigned.

Pass --apply to adopt the proposals into the active mapping set, and
--out to write the resulting set to a TOML mapping file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		proposals, err := ws.sess.ProposeAutoMappings(cmd.Context())
		if err != nil {
			return err
		}

		if len(proposals) == 0 {
			pterm.Info.Println("No new mappings to propose; every matchable field is mapped")
			return nil
		}

		rows := pterm.TableData{{"Source field", "Target field"}}
		for _, p := range proposals {
			rows = append(rows, []string{p.SourceFieldID, p.TargetFieldID})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

		apply, _ := cmd.Flags().GetBool("apply")
		if !apply {
			pterm.Info.Printf("%d proposal(s); re-run with --apply to adopt them\n", len(proposals))
			return nil
		}

		if err := ws.sess.ExtendMappings(proposals...); err != nil {
			return err
		}
		pterm.Success.Printf("Adopted %d mapping(s)\n", len(proposals))

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := store.SaveMappingFile(out, ws.sess.Mappings()); err != nil {
				return err
			}
			pterm.Success.Printf("Wrote mapping set to %s\n", out)
		} else {
			if err := ws.store.SaveMappingSet(cmd.Context(), "default", ws.sess.Mappings()); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	AutomapCmd.Flags().Bool("apply", false, "Adopt the proposed mappings into the active set")
	AutomapCmd.Flags().String("out", "", "Write the resulting mapping set to a TOML file")
}
