// Package store defines the RunStore interface for archiving simulation runs
// and their classified long tables.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/dasstrial/internal/models"
)

// RunMeta describes one archived pipeline run.
type RunMeta struct {
	ID                   string             `json:"id"`
	ParticipantsPerGroup int                `json:"participants_per_group"`
	Seed                 uint64             `json:"seed"`
	TreatmentEffect      float64            `json:"treatment_effect"`
	Weights              []float64          `json:"response_weights"`
	Timepoints           []models.Timepoint `json:"timepoints"`
	Rows                 int                `json:"rows"`
	CreatedAt            time.Time          `json:"created_at"`
}

// RunStore archives runs. Saving a run with the same parameters as an
// existing one replaces it.
type RunStore interface {
	// SaveRun stores meta and every long row atomically and returns the
	// stored metadata with ID, Rows and CreatedAt filled in.
	SaveRun(ctx context.Context, meta RunMeta, long []models.LongRecord) (RunMeta, error)

	// ListRuns returns all runs, newest first.
	ListRuns(ctx context.Context) ([]RunMeta, error)

	// GetRun returns a run by ID. Returns nil if not found.
	GetRun(ctx context.Context, id string) (*RunMeta, error)

	// LoadObservations returns a run's long rows in models.LongRecord.Less
	// order.
	LoadObservations(ctx context.Context, id string) ([]models.LongRecord, error)

	DeleteRun(ctx context.Context, id string) error
	Close() error
}

// RunID derives a stable identifier from the run parameters.
func RunID(meta RunMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "n=%d;seed=%d;effect=%s;weights=", meta.ParticipantsPerGroup, meta.Seed,
		strconv.FormatFloat(meta.TreatmentEffect, 'g', -1, 64))
	for i, w := range meta.Weights {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(w, 'g', -1, 64))
	}
	b.WriteString(";timepoints=")
	for i, tp := range meta.Timepoints {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(tp.String())
	}
	hash := sha256.Sum256([]byte(b.String()))
	return "run-" + hex.EncodeToString(hash[:6])
}

// validateRows checks that every row can be stored.
func validateRows(long []models.LongRecord) error {
	for i, r := range long {
		if !r.Subscale.Valid() {
			return fmt.Errorf("row %d: %w", i+1, &models.UnknownSubscaleError{Label: r.Subscale.Name()})
		}
		if r.ID == "" || !r.Group.Valid() || !r.Timepoint.Valid() || !r.Band.Valid() {
			return &models.SchemaError{Row: i + 1, Reason: "incomplete long record"}
		}
	}
	return nil
}

// prepareMeta fills in the derived fields of meta.
func prepareMeta(meta RunMeta, rows int) RunMeta {
	meta.ID = RunID(meta)
	meta.Rows = rows
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	return meta
}
