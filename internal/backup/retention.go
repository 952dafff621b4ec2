package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Snapshot describes one bundle in a backup directory. Every field comes
// from the bundle header, so file timestamps and sizes never affect
// retention.
type Snapshot struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Runs      int       `json:"runs"`
	Rows      int       `json:"rows"`
}

// RetentionPolicy selects the snapshots to keep. snaps is ordered newest
// first.
type RetentionPolicy interface {
	Keep(snaps []Snapshot, now time.Time) []Snapshot
}

// KeepLast keeps the N newest snapshots.
type KeepLast struct {
	N int
}

func (p KeepLast) Keep(snaps []Snapshot, _ time.Time) []Snapshot {
	return snaps[:min(max(p.N, 0), len(snaps))]
}

// KeepWithin keeps snapshots created less than Age before now.
type KeepWithin struct {
	Age time.Duration
}

func (p KeepWithin) Keep(snaps []Snapshot, now time.Time) []Snapshot {
	cutoff := now.Add(-p.Age)
	var keep []Snapshot
	for _, s := range snaps {
		if s.CreatedAt.After(cutoff) {
			keep = append(keep, s)
		}
	}
	return keep
}

// KeepRuns keeps the newest snapshots until together they hold more than
// MaxRuns archived runs. The newest snapshot is always kept.
type KeepRuns struct {
	MaxRuns int
}

func (p KeepRuns) Keep(snaps []Snapshot, _ time.Time) []Snapshot {
	total := 0
	for i, s := range snaps {
		total += s.Runs
		if total > p.MaxRuns && i > 0 {
			return snaps[:i]
		}
	}
	return snaps
}

// AnyOf keeps a snapshot when any of its policies keeps it.
type AnyOf []RetentionPolicy

func (p AnyOf) Keep(snaps []Snapshot, now time.Time) []Snapshot {
	kept := make(map[string]bool)
	for _, policy := range p {
		for _, s := range policy.Keep(snaps, now) {
			kept[s.Path] = true
		}
	}
	var keep []Snapshot
	for _, s := range snaps {
		if kept[s.Path] {
			keep = append(keep, s)
		}
	}
	return keep
}

// ListBackups returns the bundles Backup wrote to dir, newest first by
// header creation time. Files whose header cannot be read are skipped and
// never pruned. A missing dir yields no snapshots.
func ListBackups(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() || !isBackupFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		h, err := ReadHeader(path)
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{Path: path, CreatedAt: h.CreatedAt, Runs: h.RunCount, Rows: h.RowCount})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
		}
		return snaps[i].Path > snaps[j].Path
	})
	return snaps, nil
}

func isBackupFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
}

// ApplyRetention removes the bundles in dir that policy does not keep and
// returns their paths.
func ApplyRetention(dir string, policy RetentionPolicy, now time.Time) ([]string, error) {
	snaps, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool)
	for _, s := range policy.Keep(snaps, now) {
		kept[s.Path] = true
	}

	var deleted []string
	for _, s := range snaps {
		if kept[s.Path] {
			continue
		}
		if err := os.Remove(s.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(s.Path), err)
		}
		deleted = append(deleted, s.Path)
	}
	return deleted, nil
}

// ParseAge parses a retention age. It accepts Go durations ("720h") and a
// whole number of days ("30d").
func ParseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid age %q: want a positive number of days", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid age %q: want e.g. 30d or 720h", s)
	}
	return d, nil
}
