package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"habitcore/internal/core"
)

const barWidth = 20

func newHistoryCmd(a *app) *cobra.Command {
	var (
		days   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completion percentages for recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.HistoryDays
			}
			if days < 0 || days > core.MaxHistoryDays {
				return fmt.Errorf("--days must be between 0 and %d, got %d", core.MaxHistoryDays, days)
			}
			history := a.svc.CompletionHistory(days)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), history)
			}
			for _, day := range history {
				filled := day.Percentage * barWidth / 100
				bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d/%d  %3d%%\n", day.Date, bar, day.Completed, day.Total, day.Percentage)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days ending today")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newStreakCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show current and longest streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, longest := a.svc.CurrentStreak(), a.svc.LongestStreak()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"current": current, "longest": longest})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current streak: %d\nlongest streak: %d\n", current, longest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
