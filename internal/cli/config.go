package cli

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/model"
)

func addConfig(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(ro.configPath)
			if err != nil {
				return err
			}

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow(bold.Sprint("config"), ro.configPath)
			tbl.AddRow(bold.Sprint("storage.backend"), cfg.Storage.Backend)
			tbl.AddRow(bold.Sprint("storage.path"), cfg.Storage.Path)
			tbl.AddRow(bold.Sprint("storage.flush_delay_ms"), cfg.Storage.FlushDelayMS)
			tbl.AddRow(bold.Sprint("storage.max_blob_bytes"), cfg.Storage.MaxBlobBytes)
			tbl.AddRow(bold.Sprint("storage.legacy_path"), cfg.Storage.LegacyPath)
			tbl.AddRow(bold.Sprint("notifications.enabled"), cfg.Notifications.Enabled)
			tbl.AddRow(bold.Sprint("display.theme"), cfg.Display.Theme)
			fmt.Fprintln(cmd.OutOrStdout(), tbl)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(ro.configPath)
			if err != nil {
				return err
			}
			if err := model.SaveConfig(ro.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", ro.configPath)
			return nil
		},
	})

	topLevel.AddCommand(cmd)
}
