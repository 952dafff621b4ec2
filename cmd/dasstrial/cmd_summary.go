package main

import (
	"fmt"

	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/summary"
	"github.com/nvandessel/dasstrial/internal/table"
	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print group means and intervention-control differences",
		Long: `Print the descriptive checks for a simulated trial: mean pre-scaling
subscale totals per group and timepoint, intervention minus control at each
timepoint, and mean item responses. With --long, severity band counts from a
long table are included too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			input := stringFlagOr(cmd, "input", s.cfg.WidePath())
			longPath, _ := cmd.Flags().GetString("long")

			wide, err := table.ReadWideFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			var long []models.LongRecord
			if longPath != "" {
				if long, err = table.ReadLongFile(longPath); err != nil {
					return fmt.Errorf("read %s: %w", longPath, err)
				}
			}

			report, err := summary.Build(wide, long)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return printJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Render())
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Wide CSV to read (default from config)")
	cmd.Flags().String("long", "", "Long CSV or Arrow file to count severity bands from")
	return cmd
}
