package scoring

import (
	"fmt"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// Scale converts a 21-item subscale total to the 42-item convention.
func Scale(total int) int {
	return total * constants.ScaleFactor
}

// Score rescales a subscale record. This is the only place the scale factor
// is applied.
func Score(r models.SubscaleRecord) models.ScoredRecord {
	return models.ScoredRecord{SubscaleRecord: r, Score: Scale(r.Total)}
}

// Reshape converts wide records into long records, one per subscale, with
// scores rescaled and the severity band set to models.BandUnset.
//
// Group and timepoint labels must be among the fixed trial values. Each
// participant must keep one group and have exactly one row at every
// timepoint, so the result holds 15 rows per participant.
func Reshape(wide []models.WideRecord) ([]models.LongRecord, error) {
	long := make([]models.LongRecord, 0, len(wide)*constants.NumSubscales)

	groups := make(map[string]models.Group)
	seen := make(map[rowKey]bool, len(wide))
	occasions := make(map[string][]bool)

	for i, w := range wide {
		row := i + 1
		if w.ID == "" {
			return nil, &models.SchemaError{Row: row, Column: "id", Reason: "participant id is empty"}
		}
		g, err := models.ParseGroup(w.Group)
		if err != nil {
			return nil, models.AtRow(err, row)
		}
		tp, err := models.ParseTimepoint(w.Timepoint)
		if err != nil {
			return nil, models.AtRow(err, row)
		}

		if prev, ok := groups[w.ID]; ok && prev != g {
			return nil, &models.SchemaError{
				Row:    row,
				Column: "group",
				Reason: fmt.Sprintf("participant %s moved from %s to %s", w.ID, prev, g),
			}
		}
		groups[w.ID] = g

		key := rowKey{id: w.ID, timepoint: tp}
		if seen[key] {
			return nil, &models.SchemaError{
				Row:    row,
				Reason: fmt.Sprintf("duplicate row for participant %s at %s", w.ID, tp),
			}
		}
		seen[key] = true
		if occasions[w.ID] == nil {
			occasions[w.ID] = make([]bool, len(models.AllTimepoints()))
		}
		occasions[w.ID][tp] = true

		for _, s := range models.AllSubscales() {
			total := w.Totals[s]
			if total < 0 || total > constants.MaxRawTotal {
				return nil, &models.SchemaError{
					Row:    row,
					Column: s.Column(),
					Reason: fmt.Sprintf("total %d out of range [0,%d]", total, constants.MaxRawTotal),
				}
			}
			scored := Score(models.SubscaleRecord{
				ParticipantID: w.ID,
				Timepoint:     tp,
				Subscale:      s,
				Total:         total,
			})
			long = append(long, models.LongRecord{
				ID:        w.ID,
				Group:     g,
				Timepoint: tp,
				Subscale:  s,
				Score:     scored.Score,
				Band:      models.BandUnset,
			})
		}
	}

	if err := checkComplete(wide, occasions); err != nil {
		return nil, err
	}

	if len(long) != len(wide)*constants.NumSubscales {
		return nil, &models.SchemaError{
			Reason: fmt.Sprintf("reshape produced %d rows from %d, want %d", len(long), len(wide), len(wide)*constants.NumSubscales),
		}
	}
	return long, nil
}

// checkComplete verifies every participant was seen at every timepoint.
func checkComplete(wide []models.WideRecord, occasions map[string][]bool) error {
	for _, w := range wide {
		for tp, ok := range occasions[w.ID] {
			if !ok {
				return &models.SchemaError{
					Column: "timepoint",
					Reason: fmt.Sprintf("participant %s has no row at %s", w.ID, models.Timepoint(tp)),
				}
			}
		}
	}
	return nil
}
