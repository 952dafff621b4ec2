package main

import (
	"fmt"
	"path/filepath"

	"github.com/nvandessel/dasstrial/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve dasstrial tools over MCP on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing:

  dass_classify  classify a scaled subscale score
  dass_simulate  simulate a trial and summarize it, optionally writing the
                 long table inside the project root and archiving the run
  dass_runs      list archived runs

Simulation defaults come from the project configuration. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			root, err := filepath.Abs(s.root)
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}
			defaults, err := s.cfg.SimulationConfig()
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(&mcp.Config{
				Name:     "dasstrial",
				Version:  version,
				Root:     root,
				Defaults: defaults,
				Logger:   s.logger,
			})
			if err != nil {
				return err
			}

			s.logger.Info("mcp server starting", "root", root)
			return srv.Run(cmd.Context())
		},
	}
}
