// Package backup exports archived runs to checksummed bundle files and
// imports them back.
package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/store"
)

// filePrefix names bundles written by Backup.
const filePrefix = "dasstrial-backup-"

// fileExt is the bundle file extension.
const fileExt = ".dassrun"

// DefaultBackupDir returns <root>/.dasstrial/backups.
func DefaultBackupDir(projectRoot string) string {
	return filepath.Join(store.LocalDataPath(projectRoot), constants.BackupDirName)
}

// GenerateBackupPath returns a timestamped bundle path in dir.
func GenerateBackupPath(dir string) string {
	name := filePrefix + time.Now().UTC().Format("20060102-150405.000") + fileExt
	return filepath.Join(dir, name)
}

// Export writes the runs with the given IDs to outputPath. With no IDs every
// archived run is exported.
func Export(ctx context.Context, rs store.RunStore, outputPath string, ids ...string) (*Bundle, error) {
	if len(ids) == 0 {
		runs, err := rs.ListRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	b := &Bundle{CreatedAt: time.Now().UTC(), Runs: make([]Run, 0, len(ids))}
	for _, id := range ids {
		meta, err := rs.GetRun(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %s: %w", id, err)
		}
		if meta == nil {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		rows, err := rs.LoadObservations(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", id, err)
		}
		b.Runs = append(b.Runs, Run{Meta: *meta, Rows: rows})
	}

	if err := Write(outputPath, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ImportResult reports what Import stored.
type ImportResult struct {
	Imported []string `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
	Rows     int      `json:"rows"`
}

// Import stores every run in the bundle at inputPath. Runs already present
// are skipped unless replace is set.
func Import(ctx context.Context, rs store.RunStore, inputPath string, replace bool) (*ImportResult, error) {
	b, err := Read(inputPath)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: []string{}}
	for _, r := range b.Runs {
		id := store.RunID(r.Meta)
		if !replace {
			existing, err := rs.GetRun(ctx, id)
			if err != nil {
				return result, fmt.Errorf("failed to check run %s: %w", id, err)
			}
			if existing != nil {
				result.Skipped = append(result.Skipped, id)
				continue
			}
		}
		saved, err := rs.SaveRun(ctx, r.Meta, r.Rows)
		if err != nil {
			return result, fmt.Errorf("failed to import run %s: %w", id, err)
		}
		result.Imported = append(result.Imported, saved.ID)
		result.Rows += saved.Rows
	}
	return result, nil
}

// Backup exports every archived run to a new timestamped bundle in dir and
// then applies policy to the bundles there. A nil policy keeps everything.
func Backup(ctx context.Context, rs store.RunStore, dir string, policy RetentionPolicy) (path string, deleted []string, err error) {
	path = GenerateBackupPath(dir)
	if _, err := Export(ctx, rs, path); err != nil {
		return "", nil, err
	}
	if policy == nil {
		return path, nil, nil
	}
	deleted, err = ApplyRetention(dir, policy, time.Now())
	return path, deleted, err
}
