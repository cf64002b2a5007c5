package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func addSubtask(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "subtask",
		Aliases: []string{"sub"},
		Short:   "Manage a task's subtasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <task id> <text>",
		Short: "Add a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				st, err := e.repo.AddSubtask(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), st.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <task id> <subtask id>",
		Short: "Flip a subtask between done and not done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				_, err := e.repo.ToggleSubtask(ctx, args[0], args[1])
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "note <task id> <subtask id> [note]",
		Short: "Set a subtask note; omit the note to clear it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				_, err := e.repo.UpdateSubtaskNote(ctx, args[0], args[1], strings.Join(args[2:], " "))
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <task id> <subtask id> <text>",
		Short: "Change a subtask's text",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				_, err := e.repo.RenameSubtask(ctx, args[0], args[1], strings.Join(args[2:], " "))
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "delete <task id> <subtask id>",
		Aliases: []string{"rm"},
		Short:   "Delete a subtask",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				return e.repo.DeleteSubtask(ctx, args[0], args[1])
			})
		},
	})

	topLevel.AddCommand(cmd)
}
