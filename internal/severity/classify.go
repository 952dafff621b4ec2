// Package severity maps DASS-21 subscale scores to clinical severity bands.
package severity

import (
	"fmt"
	"math"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// Bounds holds the inclusive upper score of Normal, Mild, Moderate and Severe.
// Scores above the last bound are Extremely Severe.
type Bounds [4]float64

// Table maps every subscale to its bounds. It is an array indexed by
// models.Subscale, so every subscale has exactly one entry.
type Table [constants.NumSubscales]Bounds

// DefaultTable returns the published DASS-42 cut-offs.
func DefaultTable() Table {
	return Table{
		models.SubscaleAnxiety:    {7, 9, 14, 19},
		models.SubscaleDepression: {9, 13, 20, 27},
		models.SubscaleStress:     {14, 18, 25, 33},
	}
}

// Validate checks that each subscale's bounds are strictly increasing, so the
// five bands never overlap.
func (t Table) Validate() error {
	for s, b := range t {
		for i := 1; i < len(b); i++ {
			if !(b[i] > b[i-1]) {
				return &models.ConfigurationError{
					Field:  "severity." + models.Subscale(s).Name(),
					Reason: fmt.Sprintf("bounds must be strictly increasing, got %v", b),
				}
			}
		}
	}
	return nil
}

// Classifier assigns severity bands from a threshold table.
type Classifier struct {
	table Table
}

// NewClassifier creates a classifier for the given table.
func NewClassifier(table Table) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{table: table}, nil
}

var defaultClassifier = &Classifier{table: DefaultTable()}

// Classify returns the band for a score using the default table.
func Classify(score float64, s models.Subscale) (models.SeverityBand, error) {
	return defaultClassifier.Classify(score, s)
}

// ClassifyLabel classifies a score given the subscale's column label or name.
func ClassifyLabel(score float64, label string) (models.SeverityBand, error) {
	s, err := models.ParseSubscale(label)
	if err != nil {
		return 0, err
	}
	return defaultClassifier.Classify(score, s)
}

// ClassifyAll returns a copy of long with every band assigned using the default table.
func ClassifyAll(long []models.LongRecord) ([]models.LongRecord, error) {
	return defaultClassifier.ClassifyAll(long)
}

// BoundsFor returns the default bounds for a subscale.
func BoundsFor(s models.Subscale) (Bounds, error) {
	if !s.Valid() {
		return Bounds{}, &models.UnknownSubscaleError{Label: s.Name()}
	}
	return defaultClassifier.table[s], nil
}

// Classify returns the band for a score. A score equal to a bound belongs to
// the lower band. Unknown subscales are an error, never a default band.
func (c *Classifier) Classify(score float64, s models.Subscale) (models.SeverityBand, error) {
	if !s.Valid() {
		return 0, &models.UnknownSubscaleError{Label: s.Name()}
	}
	if math.IsNaN(score) {
		return 0, &models.SchemaError{Column: "score", Reason: "score is not a number"}
	}

	for i, upper := range c.table[s] {
		if score <= upper {
			return models.SeverityBand(i), nil
		}
	}
	return models.BandExtremelySevere, nil
}

// ClassifyAll returns a copy of long with every band assigned. The input is
// not modified. The first failure aborts the whole batch.
func (c *Classifier) ClassifyAll(long []models.LongRecord) ([]models.LongRecord, error) {
	out := make([]models.LongRecord, len(long))
	for i, r := range long {
		band, err := c.Classify(float64(r.Score), r.Subscale)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		r.Band = band
		out[i] = r
	}
	return out, nil
}
