package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/daemon"
	"github.com/zennify/zennify/internal/domain"
)

var (
	questDate     string
	questCategory string
	questStatus   string

	addDescription string
	addPoints      int64
	addCategory    string
	addEstimate    string
)

func init() {
	questsCmd.Flags().StringVar(&questDate, "date", "", "Day to show (YYYY-MM-DD, default today)")
	questsCmd.Flags().StringVar(&questCategory, "category", "", "Only this category")
	questsCmd.Flags().StringVar(&questStatus, "status", "", "active or completed")

	completeCmd.Flags().StringVar(&questDate, "date", "", "Day the quest belongs to (default today)")

	questAddCmd.Flags().StringVar(&questDate, "date", "", "Day to add the quest to (default today)")
	questAddCmd.Flags().StringVar(&addDescription, "description", "", "Quest description")
	questAddCmd.Flags().Int64Var(&addPoints, "points", 0, "Points awarded on completion (default 10)")
	questAddCmd.Flags().StringVar(&addCategory, "category", "", "Quest category (default meditation)")
	questAddCmd.Flags().StringVar(&addEstimate, "estimate", "", "Time estimate, e.g. \"5 min\"")

	questsCmd.AddCommand(questAddCmd)
	rootCmd.AddCommand(questsCmd)
	rootCmd.AddCommand(completeCmd)
}

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "List the day's quests",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := engagement.QuestFilter{
			Category: domain.QuestCategory(questCategory),
			Status:   engagement.QuestStatus(questStatus),
		}
		if err := filter.Validate(); err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error {
			date := dateOrToday(d, questDate)
			var a *domain.DailyQuestAssignment
			var err error
			if date == d.Quests.TodayKey() {
				a, err = d.Quests.Today(ctx, id.UserID)
			} else {
				a, err = d.Quests.ForDate(ctx, id.UserID, date)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			quests := filter.Apply(a.Quests)
			if len(quests) == 0 {
				fmt.Fprintf(out, "No quests for %s.\n", date)
				return nil
			}
			fmt.Fprintf(out, "Quests for %s (%d/%d done)\n\n", date, a.CompletedCount(), len(a.Quests))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tPOINTS\tTIME\tDONE")
			for _, q := range quests {
				done := ""
				if q.Completed {
					done = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					q.ID, q.Title, q.Category, q.Points, q.TimeEstimate, done)
			}
			return w.Flush()
		})
	},
}

var questAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a custom quest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error {
			inst, err := d.Quests.CreateCustom(ctx, id.UserID, dateOrToday(d, questDate), engagement.QuestDraft{
				Title:        args[0],
				Description:  addDescription,
				Points:       addPoints,
				Category:     domain.QuestCategory(addCategory),
				TimeEstimate: addEstimate,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%d pts) as %s\n", inst.Title, inst.Points, inst.ID)
			return nil
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <questID>",
	Short: "Mark a quest completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error {
			o, err := d.Quests.Complete(ctx, id.UserID, dateOrToday(d, questDate), args[0])
			if err != nil {
				return err
			}
			printOutcome(cmd, o, "Nothing to complete: quest unknown or already done.")
			return nil
		})
	},
}

// printOutcome reports XP, level-ups and badges from a mutation.
func printOutcome(cmd *cobra.Command, o engagement.Outcome, noop string) {
	out := cmd.OutOrStdout()
	if !o.Applied {
		fmt.Fprintln(out, noop)
		return
	}
	fmt.Fprintf(out, "+%d XP (total %d)\n", o.XPAwarded, o.Progress.ExperiencePoints)
	if o.LeveledUp() {
		fmt.Fprintf(out, "Level up! You reached level %d.\n", o.Progress.Level)
	}
	for _, id := range o.NewBadges {
		if b, ok := engagement.BadgeByID(id); ok {
			fmt.Fprintf(out, "Badge unlocked: %s\n", b.Name)
		}
	}
}
