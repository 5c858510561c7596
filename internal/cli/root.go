// Package cli implements the Zennify command-line interface using Cobra.
// Commands open the daemon in-process against the configured store.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zennify",
	Short: "Zennify: daily wellness quests, moods and streaks",
	Long: `Zennify is a gamified mental-wellness tracker.
Complete daily quests, log your mood and build streaks to level up and
unlock badges.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
