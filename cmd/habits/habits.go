package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"habitcore/pkg/domain"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered habits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			habits := a.svc.ListHabits()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), habits)
			}
			if len(habits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no habits registered")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tHABIT")
			for _, h := range habits {
				fmt.Fprintf(tw, "%s\t%s %s\n", h.ID, h.Emoji, h.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var emoji string
	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Register a new habit",
		Long:  "Register a new habit. Suggested emoji: " + strings.Join(domain.EmojiOptions, " "),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			habit, err := a.svc.AddHabit(cmd.Context(), strings.Join(args, " "), emoji)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s (%s)\n", habit.Emoji, habit.Name, habit.ID)
			a.warnPersistence(cmd)
			return nil
		},
	}
	cmd.Flags().StringVar(&emoji, "emoji", "", "emoji shown next to the habit (default "+domain.DefaultEmoji+")")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete HABIT_ID",
		Short: "Remove a habit; past completions stay in the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			known := false
			for _, h := range a.svc.ListHabits() {
				if h.ID == args[0] {
					known = true
				}
			}
			if err := a.svc.DeleteHabit(cmd.Context(), args[0]); err != nil {
				return err
			}
			if known {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "no habit %s\n", args[0])
			}
			a.warnPersistence(cmd)
			return nil
		},
	}
}

func (a *app) warnPersistence(cmd *cobra.Command) {
	if err := a.svc.LastPersistenceError(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: change kept for this session only: %v\n", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
