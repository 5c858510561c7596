package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/daemon"
	"github.com/zennify/zennify/internal/domain"
)

var (
	moodDate  string
	moodLimit int
)

func init() {
	moodCmd.Flags().StringVar(&moodDate, "date", "", "Day to log (YYYY-MM-DD, default today)")
	moodHistoryCmd.Flags().IntVar(&moodLimit, "limit", 7, "How many entries to show")
	moodCmd.AddCommand(moodHistoryCmd)
	rootCmd.AddCommand(moodCmd)
}

var moodCmd = &cobra.Command{
	Use:   "mood <terrible|bad|okay|good|great> [note]",
	Short: "Log how you feel today",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mood, err := engagement.ParseMood(args[0])
		if err != nil {
			return err
		}
		note := ""
		if len(args) == 2 {
			note = args[1]
		}
		return withSession(cmd, func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error {
			res, err := d.Moods.Submit(ctx, id.UserID, dateOrToday(d, moodDate), mood, note)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Created {
				fmt.Fprintf(out, "Updated mood for %s to %s.\n", res.Entry.Date, res.Entry.Mood)
				return nil
			}
			fmt.Fprintf(out, "Logged %s for %s.\n", res.Entry.Mood, res.Entry.Date)
			if res.Outcome.Applied {
				printOutcome(cmd, res.Outcome, "")
			}
			return nil
		})
	},
}

var moodHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent moods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error {
			entries, err := d.Moods.History(ctx, id.UserID, moodLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No moods logged yet.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tMOOD\tSCORE\tNOTE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, e.Mood, strings.Repeat("*", e.Mood.Score()), e.Note)
			}
			return w.Flush()
		})
	},
}
