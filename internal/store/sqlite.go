package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/dasstrial/internal/models"
)

// SQLiteRunStore implements RunStore on a SQLite database at .dasstrial/runs.db.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the run archive under projectRoot.
func NewSQLiteRunStore(projectRoot string) (*SQLiteRunStore, error) {
	dataDir := LocalDataPath(projectRoot)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", filepath.Base(dataDir), err)
	}
	return OpenSQLiteRunStore(ArchivePath(projectRoot))
}

// OpenSQLiteRunStore opens the archive at an explicit database path.
func OpenSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun stores a run and its rows in one transaction, replacing any run
// with the same parameters.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, meta RunMeta, long []models.LongRecord) (RunMeta, error) {
	if err := validateRows(long); err != nil {
		return RunMeta{}, err
	}
	meta = prepareMeta(meta, len(long))

	weights, err := json.Marshal(meta.Weights)
	if err != nil {
		return RunMeta{}, fmt.Errorf("failed to encode weights: %w", err)
	}
	timepoints, err := json.Marshal(meta.Timepoints)
	if err != nil {
		return RunMeta{}, fmt.Errorf("failed to encode timepoints: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunMeta{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Cascades to observations
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, meta.ID); err != nil {
		return RunMeta{}, fmt.Errorf("failed to replace run %s: %w", meta.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, participants_per_group, seed, treatment_effect,
			response_weights, timepoints, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.ParticipantsPerGroup, int64(meta.Seed), meta.TreatmentEffect,
		string(weights), string(timepoints), meta.Rows, meta.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return RunMeta{}, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (run_id, participant_id, group_arm, timepoint, subscale, score, severity_band)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return RunMeta{}, fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range long {
		if _, err := stmt.ExecContext(ctx, meta.ID, r.ID, int(r.Group), int(r.Timepoint),
			int(r.Subscale), r.Score, int(r.Band)); err != nil {
			return RunMeta{}, fmt.Errorf("failed to insert observation %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunMeta{}, fmt.Errorf("failed to commit run: %w", err)
	}
	return meta, nil
}

// timeLayout is fixed-width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = `id, participants_per_group, seed, treatment_effect, response_weights, timepoints, row_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunMeta, error) {
	var (
		m          RunMeta
		seed       int64
		weights    string
		timepoints string
		createdAt  string
	)
	if err := row.Scan(&m.ID, &m.ParticipantsPerGroup, &seed, &m.TreatmentEffect,
		&weights, &timepoints, &m.Rows, &createdAt); err != nil {
		return RunMeta{}, err
	}
	m.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(weights), &m.Weights); err != nil {
		return RunMeta{}, fmt.Errorf("run %s: failed to decode weights: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(timepoints), &m.Timepoints); err != nil {
		return RunMeta{}, fmt.Errorf("run %s: failed to decode timepoints: %w", m.ID, err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return RunMeta{}, fmt.Errorf("run %s: failed to parse created_at: %w", m.ID, err)
	}
	m.CreatedAt = t
	return m, nil
}

// ListRuns returns every archived run, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetRun returns a run by ID. Returns nil if not found.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &m, nil
}

// LoadObservations returns the run's long rows ordered as LongRecord.Less
// orders them.
func (s *SQLiteRunStore) LoadObservations(ctx context.Context, id string) ([]models.LongRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up run %s: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run not found: %s", id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, group_arm, timepoint, subscale, score, severity_band
		FROM observations WHERE run_id = ?
		ORDER BY group_arm, CAST(SUBSTR(participant_id, 2) AS INTEGER), participant_id, timepoint, subscale`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []models.LongRecord
	for rows.Next() {
		var r models.LongRecord
		var group, tp, sub, band int
		if err := rows.Scan(&r.ID, &group, &tp, &sub, &r.Score, &band); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		r.Group = models.Group(group)
		r.Timepoint = models.Timepoint(tp)
		r.Subscale = models.Subscale(sub)
		r.Band = models.SeverityBand(band)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its observations.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}
