package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func addMigrate(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import tasks and history from the legacy blob directory",
		Long: "Migrate reads the legacy \"tasks\" and \"history\" blobs from storage.legacy_path. " +
			"It does nothing when the checklist already holds data. Every other command " +
			"runs it on startup.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), ro, openOptions{skipMigration: true}, func(ctx context.Context, e *env) error {
				res, err := e.migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tasks, %d history entries\n", res.Status, res.Tasks, res.History)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}
