package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func addHistory(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed tasks, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				entries, err := e.repo.ListHistory(ctx)
				if err != nil {
					return err
				}
				newPrinter(cmd.OutOrStdout(), time.Now()).History(entries)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addRestore(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "restore <history id>",
		Short: "Move a completed task back to the active list",
		Long: "Restore creates a new task with the same title, due date and note. " +
			"Its subtasks are copied unchecked.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				t, err := e.repo.RestoreFromHistory(ctx, args[0])
				if t.ID != "" {
					fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				}
				return err
			})
		},
	}

	topLevel.AddCommand(cmd)
}
