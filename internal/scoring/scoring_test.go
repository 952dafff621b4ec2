package scoring

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

func TestDefaultPartitionIsValid(t *testing.T) {
	if err := DefaultPartition().Validate(); err != nil {
		t.Fatalf("DefaultPartition().Validate() error = %v", err)
	}
}

func TestPartitionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p Partition)
	}{
		{
			name:   "missing subscale",
			mutate: func(p Partition) { delete(p, models.SubscaleStress) },
		},
		{
			name:   "unknown subscale",
			mutate: func(p Partition) { p[models.Subscale(9)] = []string{"Q1"} },
		},
		{
			name:   "short subscale",
			mutate: func(p Partition) { p[models.SubscaleAnxiety] = p[models.SubscaleAnxiety][:6] },
		},
		{
			name: "question mapped twice",
			mutate: func(p Partition) {
				p[models.SubscaleAnxiety] = []string{"Q3", "Q4", "Q7", "Q9", "Q15", "Q19", "Q20"}
			},
		},
		{
			name: "unknown question",
			mutate: func(p Partition) {
				p[models.SubscaleAnxiety] = []string{"Q22", "Q4", "Q7", "Q9", "Q15", "Q19", "Q20"}
			},
		},
		{
			name: "zero padded question",
			mutate: func(p Partition) {
				p[models.SubscaleAnxiety] = []string{"Q02", "Q4", "Q7", "Q9", "Q15", "Q19", "Q20"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPartition()
			tt.mutate(p)
			err := p.Validate()
			var pe *models.PartitionError
			if !errors.As(err, &pe) {
				t.Fatalf("Validate() error = %v, want PartitionError", err)
			}
		})
	}
}

func fullRow(p models.Participant, tp models.Timepoint, value func(q int) int) []models.ItemResponse {
	out := make([]models.ItemResponse, 0, constants.NumQuestions)
	for q := 1; q <= constants.NumQuestions; q++ {
		out = append(out, models.ItemResponse{Participant: p, Timepoint: tp, Question: q, Value: value(q)})
	}
	return out
}

func TestAggregate(t *testing.T) {
	p := models.Participant{ID: "I01", Group: models.GroupIntervention}

	var responses []models.ItemResponse
	responses = append(responses, fullRow(p, models.TimepointBaseline, func(q int) int { return 3 })...)
	responses = append(responses, fullRow(p, models.TimepointMonth3, func(q int) int { return q % 4 })...)

	wide, err := Aggregate(responses, DefaultPartition())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(wide) != 2 {
		t.Fatalf("Aggregate() returned %d rows, want 2", len(wide))
	}

	if wide[0].Timepoint != "baseline" || wide[1].Timepoint != "3_months" {
		t.Errorf("row order = %s, %s; want baseline, 3_months", wide[0].Timepoint, wide[1].Timepoint)
	}
	if got := wide[0].Totals; got != [3]int{21, 21, 21} {
		t.Errorf("baseline totals = %v, want all 21", got)
	}

	// Anxiety items Q2,Q4,Q7,Q9,Q15,Q19,Q20 -> q%4 = 2,0,3,1,3,3,0
	// Depression Q3,Q5,Q10,Q13,Q16,Q17,Q21 -> 3,1,2,1,0,1,1
	// Stress Q1,Q6,Q8,Q11,Q12,Q14,Q18 -> 1,2,0,3,0,2,2
	want := [3]int{12, 9, 10}
	if got := wide[1].Totals; got != want {
		t.Errorf("3_months totals = %v, want %v", got, want)
	}
}

func TestAggregate_TotalsAreSumsOfSevenItems(t *testing.T) {
	p := models.Participant{ID: "C02", Group: models.GroupControl}
	responses := fullRow(p, models.TimepointMonth9, func(q int) int { return (q * 7) % 4 })

	wide, err := Aggregate(responses, DefaultPartition())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	for s, items := range DefaultPartition() {
		sum := 0
		for _, id := range items {
			q, _ := parseQuestionID(id)
			sum += wide[0].Items[q-1]
		}
		if wide[0].Totals[s] != sum {
			t.Errorf("%s total = %d, want %d", s, wide[0].Totals[s], sum)
		}
		if sum < 0 || sum > constants.MaxRawTotal {
			t.Errorf("%s total %d out of range", s, sum)
		}
	}
}

func TestAggregate_Errors(t *testing.T) {
	p := models.Participant{ID: "I01", Group: models.GroupIntervention}
	tests := []struct {
		name      string
		responses []models.ItemResponse
	}{
		{
			name:      "missing item",
			responses: fullRow(p, models.TimepointBaseline, func(int) int { return 1 })[:20],
		},
		{
			name:      "value out of range",
			responses: fullRow(p, models.TimepointBaseline, func(q int) int { return q }),
		},
		{
			name: "duplicate item",
			responses: append(fullRow(p, models.TimepointBaseline, func(int) int { return 1 }),
				models.ItemResponse{Participant: p, Timepoint: models.TimepointBaseline, Question: 5, Value: 2}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.responses, DefaultPartition())
			var se *models.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Aggregate() error = %v, want SchemaError", err)
			}
		})
	}
}

func TestAggregate_InvalidPartition(t *testing.T) {
	p := DefaultPartition()
	delete(p, models.SubscaleDepression)
	_, err := Aggregate(nil, p)
	var pe *models.PartitionError
	if !errors.As(err, &pe) {
		t.Fatalf("Aggregate() error = %v, want PartitionError", err)
	}
}

func TestScoreAppliesFactorOnce(t *testing.T) {
	for total := 0; total <= constants.MaxRawTotal; total++ {
		scored := Score(models.SubscaleRecord{Subscale: models.SubscaleStress, Total: total})
		if scored.Score != total*2 {
			t.Errorf("Score(%d) = %d, want %d", total, scored.Score, total*2)
		}
		if scored.RawTotal() != total {
			t.Errorf("RawTotal() = %d, want %d", scored.RawTotal(), total)
		}
	}
}

func wideRow(id, group, tp string, totals [3]int) models.WideRecord {
	return models.WideRecord{ID: id, Group: group, Timepoint: tp, Totals: totals}
}

// allOccasions returns one wide row per timepoint for a participant, with
// totals derived from the timepoint index.
func allOccasions(id, group string, first [3]int) []models.WideRecord {
	var rows []models.WideRecord
	for i, tp := range models.AllTimepoints() {
		totals := first
		if i > 0 {
			totals = [3]int{i, i + 1, i + 2}
		}
		rows = append(rows, wideRow(id, group, tp.String(), totals))
	}
	return rows
}

func TestReshape(t *testing.T) {
	wide := append(allOccasions("I01", "intervention", [3]int{5, 10, 21}),
		allOccasions("C01", "control", [3]int{7, 7, 7})...)

	long, err := Reshape(wide)
	if err != nil {
		t.Fatalf("Reshape() error = %v", err)
	}
	if len(long) != 2*15 {
		t.Fatalf("len(long) = %d, want 30", len(long))
	}

	want := []models.LongRecord{
		{ID: "I01", Group: models.GroupIntervention, Timepoint: models.TimepointBaseline, Subscale: models.SubscaleAnxiety, Score: 10, Band: models.BandUnset},
		{ID: "I01", Group: models.GroupIntervention, Timepoint: models.TimepointBaseline, Subscale: models.SubscaleDepression, Score: 20, Band: models.BandUnset},
		{ID: "I01", Group: models.GroupIntervention, Timepoint: models.TimepointBaseline, Subscale: models.SubscaleStress, Score: 42, Band: models.BandUnset},
	}
	if diff := cmp.Diff(want, long[:3]); diff != "" {
		t.Errorf("Reshape() first rows mismatch (-want +got):\n%s", diff)
	}

	for i, r := range long {
		w := wide[i/3]
		if r.ID != w.ID || r.Timepoint.String() != w.Timepoint || r.Group.String() != w.Group {
			t.Errorf("row %d identity = %s/%s/%s, want %s/%s/%s", i, r.ID, r.Group, r.Timepoint, w.ID, w.Group, w.Timepoint)
		}
		if r.Score/2 != w.Totals[r.Subscale] {
			t.Errorf("row %d score/2 = %d, want %d", i, r.Score/2, w.Totals[r.Subscale])
		}
	}
}

func TestReshape_Errors(t *testing.T) {
	tests := []struct {
		name string
		wide []models.WideRecord
	}{
		{
			name: "unknown timepoint",
			wide: []models.WideRecord{wideRow("I01", "intervention", "15_months", [3]int{})},
		},
		{
			name: "unknown group",
			wide: []models.WideRecord{wideRow("X01", "placebo", "baseline", [3]int{})},
		},
		{
			name: "total out of range",
			wide: []models.WideRecord{wideRow("I01", "intervention", "baseline", [3]int{22, 0, 0})},
		},
		{
			name: "duplicate timepoint",
			wide: []models.WideRecord{
				wideRow("I01", "intervention", "baseline", [3]int{}),
				wideRow("I01", "intervention", "baseline", [3]int{}),
			},
		},
		{
			name: "group changes",
			wide: []models.WideRecord{
				wideRow("I01", "intervention", "baseline", [3]int{}),
				wideRow("I01", "control", "3_months", [3]int{}),
			},
		},
		{
			name: "unbalanced timepoints",
			wide: []models.WideRecord{
				wideRow("I01", "intervention", "baseline", [3]int{}),
				wideRow("I01", "intervention", "3_months", [3]int{}),
				wideRow("C01", "control", "baseline", [3]int{}),
			},
		},
		{
			name: "empty id",
			wide: []models.WideRecord{wideRow("", "control", "baseline", [3]int{})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reshape(tt.wide)
			var se *models.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Reshape() error = %v, want SchemaError", err)
			}
		})
	}
}

func TestReshape_RequiresEveryTimepoint(t *testing.T) {
	tests := []struct {
		name string
		wide []models.WideRecord
	}{
		{"baseline only", []models.WideRecord{
			wideRow("I01", "intervention", "baseline", [3]int{}),
			wideRow("C01", "control", "baseline", [3]int{}),
		}},
		{"one occasion dropped", append(allOccasions("I01", "intervention", [3]int{}),
			allOccasions("C01", "control", [3]int{})[:4]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			long, err := Reshape(tt.wide)
			var se *models.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Reshape() error = %v, want SchemaError", err)
			}
			if se.Column != "timepoint" {
				t.Errorf("SchemaError.Column = %q, want timepoint", se.Column)
			}
			if long != nil {
				t.Errorf("Reshape() returned %d rows alongside error", len(long))
			}
		})
	}
}

func TestReshape_ErrorCarriesRow(t *testing.T) {
	wide := []models.WideRecord{
		wideRow("I01", "intervention", "baseline", [3]int{}),
		wideRow("I02", "intervention", "month_3", [3]int{}),
	}
	_, err := Reshape(wide)
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Reshape() error = %v, want SchemaError", err)
	}
	if se.Row != 2 || se.Column != "timepoint" {
		t.Errorf("SchemaError at row %d column %q, want row 2 column timepoint", se.Row, se.Column)
	}
}

func TestVerifyWide(t *testing.T) {
	var items [constants.NumQuestions]int
	for i := range items {
		items[i] = 2
	}
	good := models.WideRecord{ID: "I01", Group: "intervention", Timepoint: "baseline", Items: items, Totals: [3]int{14, 14, 14}}
	if err := VerifyWide([]models.WideRecord{good}, DefaultPartition()); err != nil {
		t.Fatalf("VerifyWide() error = %v", err)
	}

	badTotal := good
	badTotal.Totals[models.SubscaleDepression] = 13
	err := VerifyWide([]models.WideRecord{good, badTotal}, DefaultPartition())
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("VerifyWide() error = %v, want SchemaError", err)
	}
	if se.Row != 2 || se.Column != "DASS_Depression" {
		t.Errorf("SchemaError at row %d column %q, want row 2 column DASS_Depression", se.Row, se.Column)
	}

	badItem := good
	badItem.Items[0] = 4
	if err := VerifyWide([]models.WideRecord{badItem}, DefaultPartition()); !errors.As(err, &se) {
		t.Fatalf("VerifyWide() error = %v, want SchemaError", err)
	}
}
