package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nvandessel/dasstrial/internal/config"
	"github.com/nvandessel/dasstrial/internal/logging"
	"github.com/nvandessel/dasstrial/internal/pipeline"
	"github.com/nvandessel/dasstrial/internal/store"
	"github.com/spf13/cobra"
)

// session carries what every subcommand resolves from the global flags.
type session struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	trace   *logging.TraceLogger
	jsonOut bool
}

// loadSession resolves the config file, applies --log-level and opens the
// loggers. Relative output directories are taken relative to --root.
func loadSession(cmd *cobra.Command) (*session, error) {
	root, _ := cmd.Flags().GetString("root")
	cfgPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("json")

	if cfgPath == "" {
		if p := config.DefaultPath(root); fileExists(p) {
			cfgPath = p
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.Logging.Level = level
	}
	if cfg.Output.Dir != "" && !filepath.IsAbs(cfg.Output.Dir) {
		cfg.Output.Dir = filepath.Join(root, cfg.Output.Dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &session{
		root:    root,
		cfg:     cfg,
		logger:  logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		trace:   logging.NewTraceLogger(store.LocalDataPath(root), cfg.Logging.Level),
		jsonOut: jsonOut,
	}, nil
}

func (s *session) Close() {
	s.trace.Close()
}

func (s *session) pipeline() *pipeline.Pipeline {
	return pipeline.New(s.logger, s.trace)
}

func (s *session) openArchive() (*store.SQLiteRunStore, error) {
	rs, err := store.NewSQLiteRunStore(s.root)
	if err != nil {
		return nil, fmt.Errorf("open run archive: %w", err)
	}
	return rs, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// stringFlagOr returns the flag value, or fallback when the flag is empty.
func stringFlagOr(cmd *cobra.Command, name, fallback string) string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return fallback
	}
	return v
}
