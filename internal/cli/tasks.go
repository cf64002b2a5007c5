package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/repository"
)

func addAdd(topLevel *cobra.Command, ro *rootOptions) {
	var due string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Example: `
checklist add "Renew passport" --due 2026-05-01
checklist add "Dentist" --due "2026-04-12 09:30"
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a title")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				t, err := e.repo.AddTask(ctx, strings.Join(args, " "), due)
				if t.ID != "" {
					fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC 3339).")
	_ = cmd.MarkFlagRequired("due")

	topLevel.AddCommand(cmd)
}

func addList(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active tasks by due date",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				tasks, err := e.repo.ListTasks(ctx)
				if err != nil {
					return err
				}
				newPrinter(cmd.OutOrStdout(), time.Now()).Tasks(tasks)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addShow(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "show <task id>",
		Short: "Show a task with its note and subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				t, err := e.repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				newPrinter(cmd.OutOrStdout(), time.Now()).Task(t)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addEdit(topLevel *cobra.Command, ro *rootOptions) {
	var title, due, note string

	cmd := &cobra.Command{
		Use:   "edit <task id>",
		Short: "Change a task's title, due date or note",
		Example: `
checklist edit <task id> --due "2026-05-02 18:00"
checklist edit <task id> --note ""
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd repository.TaskUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("due") {
				upd.DueDate = &due
			}
			if cmd.Flags().Changed("note") {
				upd.Note = &note
			}
			if upd.Title == nil && upd.DueDate == nil && upd.Note == nil {
				return errors.New("nothing to change, pass --title, --due or --note")
			}
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				_, err := e.repo.UpdateTask(ctx, args[0], upd)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title.")
	cmd.Flags().StringVarP(&due, "due", "d", "", "New due date.")
	cmd.Flags().StringVar(&note, "note", "", "New note (empty clears it).")

	topLevel.AddCommand(cmd)
}

func addComplete(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "complete <task id>",
		Aliases: []string{"done"},
		Short:   "Move a task to history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				_, err := e.repo.CompleteTask(ctx, args[0])
				return err
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addDelete(topLevel *cobra.Command, ro *rootOptions) {
	var history bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task, or a history entry with --history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), ro, openOptions{}, func(ctx context.Context, e *env) error {
				if history {
					return e.repo.DeleteHistoryEntry(ctx, args[0])
				}
				return e.repo.DeleteTask(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Delete a history entry instead of a task.")

	topLevel.AddCommand(cmd)
}
