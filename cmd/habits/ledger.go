package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"habitcore/pkg/domain"
)

func resolveDate(a *app, raw string) (domain.Date, error) {
	if raw == "" {
		return a.svc.Today(), nil
	}
	return domain.ParseDate(raw)
}

func newToggleCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "toggle HABIT_ID",
		Short: "Mark a habit done (or undone) for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDate(a, date)
			if err != nil {
				return err
			}
			done, err := a.svc.ToggleCompletion(cmd.Context(), day, args[0])
			if err != nil {
				return err
			}
			mark := "not done"
			if done {
				mark = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s\n", args[0], mark, day)
			a.warnPersistence(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to toggle as YYYY-MM-DD (default today)")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the checklist for a day and current streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := resolveDate(a, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			habits := a.svc.ListHabits()
			done := 0
			fmt.Fprintln(out, day)
			for _, h := range habits {
				box := "[ ]"
				if a.svc.IsCompleted(day, h.ID) {
					box = "[x]"
					done++
				}
				fmt.Fprintf(out, "  %s %s %s (%s)\n", box, h.Emoji, h.Name, h.ID)
			}
			fmt.Fprintf(out, "%d/%d done\n", done, len(habits))
			fmt.Fprintf(out, "current streak: %d  longest streak: %d\n", a.svc.CurrentStreak(), a.svc.LongestStreak())
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to show as YYYY-MM-DD (default today)")
	return cmd
}
