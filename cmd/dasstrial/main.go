package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dasstrial",
		Short: "Simulate and classify DASS-21 outcomes for a two-arm trial",
		Long: `dasstrial simulates item-level DASS-21 responses for an intervention and a
control group over repeated assessments, scores the depression, anxiety and
stress subscales and assigns each score its clinical severity band.

Outputs are a wide item-level CSV, a long scored CSV (optionally Arrow IPC),
an HTML trajectory page and an optional SQLite archive of runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: <root>/.dasstrial/config.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newClassifyCmd(),
		newRunCmd(),
		newSummaryCmd(),
		newRenderCmd(),
		newRunsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dasstrial version %s\n", version)
			return nil
		},
	}
}
