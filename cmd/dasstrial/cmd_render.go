package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/table"
	"github.com/nvandessel/dasstrial/internal/visualization"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render per-participant severity trajectories as HTML",
		Long: `Render one line chart per participant showing each subscale's scaled score
across timepoints, with the severity band on every point.

The rows come from a long CSV or Arrow file, or from an archived run with
--run. With --serve the page is served from a local HTTP server instead of
written to disk.

Examples:
  dasstrial render --open
  dasstrial render -i data/dass21_long.arrow -o chart.html --title "Pilot"
  dasstrial render --run run-1a2b3c4d5e6f --serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			title := stringFlagOr(cmd, "title", s.cfg.Render.Title)
			runID, _ := cmd.Flags().GetString("run")
			serve, _ := cmd.Flags().GetBool("serve")
			open, _ := cmd.Flags().GetBool("open")

			var source visualization.Source
			if runID != "" {
				rs, err := s.openArchive()
				if err != nil {
					return err
				}
				defer rs.Close()
				meta, err := rs.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if meta == nil {
					return fmt.Errorf("run not found: %s", runID)
				}
				source = visualization.RunSource(rs, runID)
			} else {
				input := stringFlagOr(cmd, "input", s.cfg.LongPath())
				long, err := table.ReadLongFile(input)
				if err != nil {
					return fmt.Errorf("read %s: %w", input, err)
				}
				source = visualization.StaticSource(long)
			}

			if serve {
				return runTrajectoryServer(cmd, cmd.Context(), visualization.NewServer(source, title), open)
			}

			output := stringFlagOr(cmd, "output", s.cfg.ChartPath())
			if output == "" {
				output = filepath.Join(s.cfg.Output.Dir, constants.DefaultChartFile)
			}
			long, err := source(cmd.Context())
			if err != nil {
				return err
			}
			if err := visualization.WriteTrajectoriesFile(output, long, title); err != nil {
				return fmt.Errorf("render: %w", err)
			}

			if s.jsonOut {
				if err := printJSON(cmd, map[string]any{"chart": output, "rows": len(long)}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Trajectories written to %s\n", output)
			}

			if open {
				url, err := visualization.FileURL(output)
				if err == nil {
					err = visualization.OpenBrowser(url)
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, output)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Long CSV or Arrow file to read (default from config)")
	cmd.Flags().StringP("output", "o", "", "HTML output path (default from config)")
	cmd.Flags().String("title", "", "Page title (default from config)")
	cmd.Flags().String("run", "", "Render an archived run instead of a file")
	cmd.Flags().Bool("open", false, "Open the page in a browser")
	cmd.Flags().Bool("serve", false, "Serve the page from a local HTTP server until interrupted")
	return cmd
}

// runTrajectoryServer serves srv and blocks until ctx is cancelled or an
// interrupt arrives.
func runTrajectoryServer(cmd *cobra.Command, ctx context.Context, srv *visualization.Server, open bool) error {
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			srvCancel()
		case <-srvCtx.Done():
		}
	}()

	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(srvCtx, func(addr string) { ready <- addr })
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-time.After(3 * time.Second):
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Trajectory server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if open {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
