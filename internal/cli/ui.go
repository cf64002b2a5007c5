package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/app"
	"github.com/nhle/checklist/internal/notify"
)

func addUI(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd.Context(), ro)
		},
	}

	topLevel.AddCommand(cmd)
}

// runUI starts the terminal UI. Logging goes to a file next to the config
// so it does not draw over the screen.
func runUI(ctx context.Context, ro *rootOptions) error {
	dir := filepath.Dir(ro.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	logFile, err := tea.LogToFile(filepath.Join(dir, "checklist.log"), "checklist")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	return withEnv(ctx, ro, openOptions{}, func(ctx context.Context, e *env) error {
		var (
			capability notify.Capability = notify.Noop{}
			banner     *app.Banner
		)
		if e.cfg.Notifications.Enabled {
			banner = app.NewBanner()
			capability = banner
		}
		bridge := notify.NewBridge(ctx, capability)
		defer bridge.Close()

		m := app.New(app.Deps{
			Repo:          e.repo,
			Bridge:        bridge,
			Banner:        banner,
			MarkdownStyle: e.cfg.Display.Theme,
			StartupErr:    e.store.LoadErr(),
		})

		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("running ui: %w", err)
		}
		return nil
	})
}
