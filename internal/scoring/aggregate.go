package scoring

import (
	"fmt"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

type rowKey struct {
	id        string
	timepoint models.Timepoint
}

// Aggregate groups item responses by participant and timepoint and sums them
// into subscale totals. Rows are returned in the order their first response
// appears. Each row must contain every question exactly once.
func Aggregate(responses []models.ItemResponse, p Partition) ([]models.WideRecord, error) {
	idx, err := p.compile()
	if err != nil {
		return nil, err
	}

	type pending struct {
		record models.WideRecord
		seen   [constants.NumQuestions]bool
		count  int
	}

	rows := make(map[rowKey]*pending)
	var order []rowKey

	for _, r := range responses {
		if r.Question < 1 || r.Question > constants.NumQuestions {
			return nil, &models.SchemaError{Reason: fmt.Sprintf("participant %s: question %d out of range", r.Participant.ID, r.Question)}
		}
		if r.Value < 0 || r.Value > constants.MaxItemScore {
			return nil, &models.SchemaError{
				Column: QuestionID(r.Question),
				Reason: fmt.Sprintf("participant %s: value %d out of range [0,%d]", r.Participant.ID, r.Value, constants.MaxItemScore),
			}
		}

		key := rowKey{id: r.Participant.ID, timepoint: r.Timepoint}
		row, ok := rows[key]
		if !ok {
			row = &pending{record: models.WideRecord{
				ID:        r.Participant.ID,
				Group:     r.Participant.Group.String(),
				Timepoint: r.Timepoint.String(),
			}}
			rows[key] = row
			order = append(order, key)
		}

		q := r.Question - 1
		if row.seen[q] {
			return nil, &models.SchemaError{
				Column: QuestionID(r.Question),
				Reason: fmt.Sprintf("participant %s at %s answered twice", key.id, key.timepoint),
			}
		}
		row.seen[q] = true
		row.count++
		row.record.Items[q] = r.Value
	}

	out := make([]models.WideRecord, 0, len(order))
	for _, key := range order {
		row := rows[key]
		if row.count != constants.NumQuestions {
			return nil, &models.SchemaError{
				Reason: fmt.Sprintf("participant %s at %s has %d of %d items", key.id, key.timepoint, row.count, constants.NumQuestions),
			}
		}
		row.record.Totals = idx.totals(row.record.Items)
		out = append(out, row.record)
	}
	return out, nil
}

// VerifyWide checks wide records read from a table: items must lie in [0,3]
// and each subscale total must equal the sum of its seven items.
func VerifyWide(wide []models.WideRecord, p Partition) error {
	idx, err := p.compile()
	if err != nil {
		return err
	}

	for i, w := range wide {
		row := i + 1
		for q, v := range w.Items {
			if v < 0 || v > constants.MaxItemScore {
				return &models.SchemaError{
					Row:    row,
					Column: QuestionID(q + 1),
					Reason: fmt.Sprintf("value %d out of range [0,%d]", v, constants.MaxItemScore),
				}
			}
		}
		want := idx.totals(w.Items)
		for _, s := range models.AllSubscales() {
			if w.Totals[s] != want[s] {
				return &models.SchemaError{
					Row:    row,
					Column: s.Column(),
					Reason: fmt.Sprintf("total %d does not match item sum %d", w.Totals[s], want[s]),
				}
			}
		}
	}
	return nil
}
