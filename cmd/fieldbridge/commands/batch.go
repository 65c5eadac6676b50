package commands

import (
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teleskop/fieldbridge/batch"
)

// BatchCmd loads a page of previews and summarizes their states
var BatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Load a page of previews and summarize their states",
	Long: `Load one page of the record list through the batch orchestrator and
print each record's resulting state. The page's prefetch window is
computed as well, so the next page is warm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		page, _ := cmd.Flags().GetInt("page")
		spinner, _ := pterm.DefaultSpinner.Start("Computing previews...")
		ws.sess.LoadPage(cmd.Context(), page)
		spinner.Stop()

		snap := ws.sess.BatchState()
		ids := make([]string, 0, len(snap.Entries))
		for id := range snap.Entries {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		rows := pterm.TableData{{"Record", "State", "Issues", "Error"}}
		for _, id := range ids {
			entry := snap.Entries[id]
			issues := ""
			if entry.Status == batch.StatusReady {
				issues = pterm.Sprintf("%d", entry.Preview.IssueCount())
			}
			rows = append(rows, []string{id, string(entry.Status), issues, entry.Error})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

		pterm.Info.Printf("Page %d of %d; %d validation issue(s) across ready previews\n",
			page, ws.sess.PageCount(), snap.IssueCount)
		return nil
	},
}

func init() {
	BatchCmd.Flags().Int("page", 1, "1-based page to load")
}
