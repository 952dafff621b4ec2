package main

import (
	"fmt"

	"github.com/nvandessel/dasstrial/internal/pipeline"
	"github.com/nvandessel/dasstrial/internal/summary"
	"github.com/spf13/cobra"
)

type runOutput struct {
	Written  pipeline.Written `json:"written"`
	WideRows int              `json:"wide_rows"`
	LongRows int              `json:"long_rows"`
	RunID    string           `json:"run_id,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate, classify and write every output in one pass",
		Long: `Run the whole pipeline: simulate, aggregate, verify, reshape and classify,
then write the wide and long tables and the trajectory page. With --archive
(or output.archive in the config) the run is also stored in
.dasstrial/runs.db.

Tables are always written before the chart, so a chart failure leaves
complete tables on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			simCfg, err := simulationConfig(cmd, s)
			if err != nil {
				return err
			}
			archive := s.cfg.Output.Archive
			if cmd.Flags().Changed("archive") {
				archive, _ = cmd.Flags().GetBool("archive")
			}
			noChart, _ := cmd.Flags().GetBool("no-chart")

			out := pipeline.Outputs{
				WidePath:   s.cfg.WidePath(),
				LongPath:   s.cfg.LongPath(),
				ArrowPath:  s.cfg.ArrowPath(),
				ChartPath:  s.cfg.ChartPath(),
				ChartTitle: s.cfg.Render.Title,
			}
			if noChart {
				out.ChartPath = ""
			}

			p := s.pipeline()
			res, err := p.Run(cmd.Context(), simCfg)
			if err != nil {
				return err
			}

			result := runOutput{WideRows: len(res.Wide), LongRows: len(res.Long)}
			written, writeErr := p.Write(cmd.Context(), res, out)
			result.Written = written
			if writeErr != nil {
				result.Error = writeErr.Error()
			}

			// Archive whenever the tables made it to disk.
			if archive && (writeErr == nil || written.Long != "") {
				rs, err := s.openArchive()
				if err != nil {
					return err
				}
				defer rs.Close()
				meta, err := p.Archive(cmd.Context(), rs, res)
				if err != nil {
					return err
				}
				result.RunID = meta.ID
			}

			if s.jsonOut {
				if err := printJSON(cmd, result); err != nil {
					return err
				}
				return writeErr
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Simulated %d wide rows, classified %d long rows\n", result.WideRows, result.LongRows)
			for _, f := range []struct{ label, path string }{
				{"wide", written.Wide}, {"long", written.Long}, {"arrow", written.Arrow}, {"chart", written.Chart},
			} {
				if f.path != "" {
					fmt.Fprintf(w, "  %-6s %s\n", f.label+":", f.path)
				}
			}
			if result.RunID != "" {
				fmt.Fprintf(w, "Archived as %s\n", result.RunID)
			}
			if writeErr != nil {
				return writeErr
			}

			means, err := summary.GroupMeans(res.Wide)
			if err != nil {
				return err
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Intervention minus control (pre-scaling totals):")
			fmt.Fprintln(w, summary.RenderDifferences(summary.Differences(means)))
			return nil
		},
	}

	addSimulationFlags(cmd)
	cmd.Flags().Bool("archive", false, "Store the run in .dasstrial/runs.db")
	cmd.Flags().Bool("no-chart", false, "Skip the trajectory page")
	return cmd
}
