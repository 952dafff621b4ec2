package main

import (
	"fmt"

	"github.com/nvandessel/dasstrial/internal/pipeline"
	"github.com/nvandessel/dasstrial/internal/table"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Score a wide table and assign severity bands",
		Long: `Read a wide table, verify its subscale totals, scale them to the 0-42 range,
reshape to one row per participant, timepoint and subscale, and classify each
score into its severity band.

The long table is written as CSV, plus Arrow IPC when --arrow (or
output.arrow_file in the config) names a file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			input := stringFlagOr(cmd, "input", s.cfg.WidePath())
			out := pipeline.Outputs{
				LongPath:  stringFlagOr(cmd, "output", s.cfg.LongPath()),
				ArrowPath: stringFlagOr(cmd, "arrow", s.cfg.ArrowPath()),
			}

			wide, err := table.ReadWideFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}

			p := s.pipeline()
			long, err := p.Classify(cmd.Context(), wide)
			if err != nil {
				return err
			}
			written, err := p.Write(cmd.Context(), &pipeline.Result{Wide: wide, Long: long}, out)
			if err != nil {
				return err
			}

			if s.jsonOut {
				return printJSON(cmd, map[string]any{
					"written": written,
					"rows":    len(long),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Classified %d wide rows into %d long rows\n", len(wide), len(long))
			fmt.Fprintf(cmd.OutOrStdout(), "  long:  %s\n", written.Long)
			if written.Arrow != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  arrow: %s\n", written.Arrow)
			}
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Wide CSV to read (default from config)")
	cmd.Flags().StringP("output", "o", "", "Long CSV path (default from config)")
	cmd.Flags().String("arrow", "", "Also write the long table as Arrow IPC to this path")
	return cmd
}
