package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/dasstrial/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dasstrial configuration",
		Long: `View and create the project configuration.

Configuration is read from <root>/.dasstrial/config.yaml (or --config) and
then overridden by DASSTRIAL_* environment variables.

Examples:
  dasstrial config show
  dasstrial config init`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.jsonOut {
				return printJSON(cmd, s.cfg)
			}
			data, err := s.cfg.Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to .dasstrial/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			force, _ := cmd.Flags().GetBool("force")
			jsonOut, _ := cmd.Flags().GetBool("json")

			path := config.DefaultPath(root)
			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			data, err := config.Default().Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			if jsonOut {
				return printJSON(cmd, map[string]string{"status": "initialized", "path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}
