package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
)

func configCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(e.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", e.configPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := model.SaveConfig(e.configPath, model.DefaultAppConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", e.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := e.cfg
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config:              %s\n", e.configPath)
			fmt.Fprintf(w, "storage.backend:     %s\n", c.Storage.Backend)
			fmt.Fprintf(w, "storage.path:        %s\n", c.Storage.Path)
			fmt.Fprintf(w, "storage.key:         %s\n", c.Storage.Key)
			fmt.Fprintf(w, "ai.model:            %s\n", c.AI.Model)
			fmt.Fprintf(w, "ai.base_url:         %s\n", c.AI.BaseURL)
			fmt.Fprintf(w, "ai.count:            %d\n", c.AI.Count)
			fmt.Fprintf(w, "reminders.enabled:   %t\n", c.Reminders.Enabled)
			fmt.Fprintf(w, "reminders.interval:  %ds\n", c.Reminders.IntervalSec)
			fmt.Fprintf(w, "display.toast:       %ds\n", c.Display.ToastSec)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
