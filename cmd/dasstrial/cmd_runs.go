package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/dasstrial/internal/backup"
	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/summary"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run archive",
		Long: `List, show and delete runs stored in .dasstrial/runs.db by
'dasstrial run --archive' or the dass_simulate tool, and move them between
archives as checksummed bundle files.`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
		newRunsExportCmd(),
		newRunsImportCmd(),
		newRunsBackupCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.openArchive()
			if err != nil {
				return err
			}
			defer rs.Close()

			runs, err := rs.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			if s.jsonOut {
				return printJSON(cmd, map[string]any{"runs": runs, "count": len(runs)})
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No archived runs.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  n=%d/arm  seed=%d  effect=%.2f  rows=%d  %s\n",
					r.ID, r.ParticipantsPerGroup, r.Seed, r.TreatmentEffect, r.Rows,
					r.CreatedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's parameters and severity band counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.openArchive()
			if err != nil {
				return err
			}
			defer rs.Close()

			meta, err := rs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if meta == nil {
				return fmt.Errorf("run not found: %s", args[0])
			}
			long, err := rs.LoadObservations(cmd.Context(), meta.ID)
			if err != nil {
				return err
			}
			counts, err := summary.BandCounts(long)
			if err != nil {
				return err
			}

			if s.jsonOut {
				return printJSON(cmd, map[string]any{"run": meta, "band_counts": counts})
			}

			tps := make([]string, len(meta.Timepoints))
			for i, tp := range meta.Timepoints {
				tps[i] = tp.String()
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run:          %s\n", meta.ID)
			fmt.Fprintf(w, "Created:      %s\n", meta.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(w, "Participants: %d per arm\n", meta.ParticipantsPerGroup)
			fmt.Fprintf(w, "Seed:         %d\n", meta.Seed)
			fmt.Fprintf(w, "Effect:       %.2f\n", meta.TreatmentEffect)
			fmt.Fprintf(w, "Weights:      %v\n", meta.Weights)
			fmt.Fprintf(w, "Timepoints:   %s\n", strings.Join(tps, ", "))
			fmt.Fprintf(w, "Rows:         %d\n\n", meta.Rows)
			fmt.Fprintln(w, summary.RenderBandCounts(counts))
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.openArchive()
			if err != nil {
				return err
			}
			defer rs.Close()

			if err := rs.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			if s.jsonOut {
				return printJSON(cmd, map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run-id...]",
		Short: "Export archived runs to a bundle file",
		Long: `Write runs and their long rows to a gzip-compressed bundle with a
checksummed header. With no run IDs every archived run is exported.

Examples:
  dasstrial runs export -o trial.dassrun
  dasstrial runs export run-1a2b3c4d5e6f -o one.dassrun`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.openArchive()
			if err != nil {
				return err
			}
			defer rs.Close()

			b, err := backup.Export(cmd.Context(), rs, output, args...)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return printJSON(cmd, map[string]any{"path": output, "runs": len(b.Runs), "rows": b.RowCount()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d runs (%d rows) to %s\n", len(b.Runs), b.RowCount(), output)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Bundle file to write")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newRunsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <bundle>",
		Short: "Import runs from a bundle file",
		Long: `Verify a bundle's checksum and store its runs in the archive. Runs that
already exist are skipped unless --replace is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.openArchive()
			if err != nil {
				return err
			}
			defer rs.Close()

			res, err := backup.Import(cmd.Context(), rs, args[0], replace)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return printJSON(cmd, res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Imported %d runs (%d rows)\n", len(res.Imported), res.Rows)
			for _, id := range res.Skipped {
				fmt.Fprintf(w, "Skipped %s (already archived)\n", id)
			}
			return nil
		},
	}

	cmd.Flags().Bool("replace", false, "Overwrite runs that are already archived")
	return cmd
}

func newRunsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the whole archive and prune old backups",
		Long: `Export every archived run to a timestamped bundle in .dasstrial/backups
(or --dir), then delete older bundles. A bundle is kept if any of --keep,
--max-age or --max-runs would keep it. Ages and run counts come from each
bundle's header.

Examples:
  dasstrial runs backup
  dasstrial runs backup --keep 3 --max-age 30d
  dasstrial runs backup --keep 1 --max-runs 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")
			maxRuns, _ := cmd.Flags().GetInt("max-runs")

			policy := backup.AnyOf{backup.KeepLast{N: keep}}
			if maxAge != "" {
				age, err := backup.ParseAge(maxAge)
				if err != nil {
					return err
				}
				policy = append(policy, backup.KeepWithin{Age: age})
			}
			if maxRuns > 0 {
				policy = append(policy, backup.KeepRuns{MaxRuns: maxRuns})
			}

			s, err := loadSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			dir := stringFlagOr(cmd, "dir", backup.DefaultBackupDir(s.root))
			rs, err := s.openArchive()
			if err != nil {
				return err
			}
			defer rs.Close()

			path, deleted, err := backup.Backup(cmd.Context(), rs, dir, policy)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return printJSON(cmd, map[string]any{"path": path, "deleted": deleted})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Backed up archive to %s\n", path)
			for _, d := range deleted {
				fmt.Fprintf(w, "Removed %s\n", filepath.Base(d))
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Backup directory (default .dasstrial/backups)")
	cmd.Flags().Int("keep", constants.DefaultBackupKeep, "Number of most recent backups to keep")
	cmd.Flags().String("max-age", "", "Also keep backups newer than this (e.g. 30d, 720h)")
	cmd.Flags().Int("max-runs", 0, "Also keep newest backups until they hold more than this many runs")
	return cmd
}
