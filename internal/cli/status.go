package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zennify/zennify/internal/daemon"
	"github.com/zennify/zennify/internal/domain"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show level, streak and badges",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error {
			view, err := d.Progress.View(ctx, id.UserID)
			if err != nil {
				return err
			}
			p := view.Progress
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  Level %d  %s %3.0f%%\n", p.Username, p.Level, levelBar(view.LevelProgress), view.LevelProgress)
			fmt.Fprintf(out, "  XP:      %d (%d to next level)\n", p.ExperiencePoints, view.XPToNextLevel)
			fmt.Fprintf(out, "  Streak:  %d days (best %d)\n", p.StreakDays, p.LongestStreak)
			fmt.Fprintf(out, "  Quests:  %d completed\n", p.QuestsCompletedCount)
			fmt.Fprintf(out, "  Moods:   %d logged\n", p.MoodEntriesCount)
			fmt.Fprintf(out, "  Badges:  %d/%d\n\n", view.UnlockedCount, view.TotalBadges)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BADGE\tSTATUS\tREQUIREMENT")
			for _, b := range view.Badges {
				status := "locked"
				if b.Unlocked {
					status = "unlocked"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, status, b.Description)
			}
			return w.Flush()
		})
	},
}

const barWidth = 20

// levelBar renders pct as [=====>....].
func levelBar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", barWidth) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", barWidth-filled) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}
