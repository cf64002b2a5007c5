// Package cli implements the checklist command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/model"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
}

// New returns the root command. Without a subcommand it starts the
// terminal UI.
func New() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "checklist",
		Short:         "Personal task checklist with subtasks, history and a pinned reminder.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd.Context(), ro)
		},
	}
	cmd.PersistentFlags().StringVar(&ro.configPath, "config", model.DefaultConfigPath(),
		"Path to the config file.")

	AddCommands(cmd, ro)
	return cmd
}

// AddCommands registers the subcommands on topLevel.
func AddCommands(topLevel *cobra.Command, ro *rootOptions) {
	addUI(topLevel, ro)
	addAdd(topLevel, ro)
	addList(topLevel, ro)
	addShow(topLevel, ro)
	addEdit(topLevel, ro)
	addComplete(topLevel, ro)
	addDelete(topLevel, ro)
	addSubtask(topLevel, ro)
	addHistory(topLevel, ro)
	addRestore(topLevel, ro)
	addMigrate(topLevel, ro)
	addConfig(topLevel, ro)
}

// withEnv opens the persistence stack, runs fn and closes the stack. The
// close error is reported when fn succeeded.
func withEnv(ctx context.Context, ro *rootOptions, opts openOptions, fn func(ctx context.Context, e *env) error) error {
	e, err := openEnv(ctx, ro.configPath, opts)
	if err != nil {
		return err
	}
	runErr := fn(ctx, e)
	closeErr := e.Close(context.WithoutCancel(ctx))
	return errors.Join(runErr, closeErr)
}
