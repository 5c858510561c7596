package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zennify/zennify/internal/app/engagement"
)

var catalogSearch string

func init() {
	catalogCmd.Flags().StringVarP(&catalogSearch, "search", "s", "", "Fuzzy match quest titles")
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the quest catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		templates := engagement.SearchCatalog(catalogSearch)
		out := cmd.OutOrStdout()
		if len(templates) == 0 {
			fmt.Fprintf(out, "No quests match %q.\n", catalogSearch)
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tPOINTS\tTIME")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Title, t.Category, t.Points, t.TimeEstimate)
		}
		return w.Flush()
	},
}
