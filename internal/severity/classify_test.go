package severity

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		subscale models.Subscale
		score    float64
		want     models.SeverityBand
	}{
		{models.SubscaleDepression, 0, models.BandNormal},
		{models.SubscaleDepression, 9, models.BandNormal},
		{models.SubscaleDepression, 10, models.BandMild},
		{models.SubscaleDepression, 13, models.BandMild},
		{models.SubscaleDepression, 14, models.BandModerate},
		{models.SubscaleDepression, 20, models.BandModerate},
		{models.SubscaleDepression, 21, models.BandSevere},
		{models.SubscaleDepression, 27, models.BandSevere},
		{models.SubscaleDepression, 28, models.BandExtremelySevere},
		{models.SubscaleDepression, 42, models.BandExtremelySevere},

		{models.SubscaleAnxiety, 7, models.BandNormal},
		{models.SubscaleAnxiety, 8, models.BandMild},
		{models.SubscaleAnxiety, 9, models.BandMild},
		{models.SubscaleAnxiety, 10, models.BandModerate},
		{models.SubscaleAnxiety, 14, models.BandModerate},
		{models.SubscaleAnxiety, 15, models.BandSevere},
		{models.SubscaleAnxiety, 19, models.BandSevere},
		{models.SubscaleAnxiety, 20, models.BandExtremelySevere},

		{models.SubscaleStress, 14, models.BandNormal},
		{models.SubscaleStress, 15, models.BandMild},
		{models.SubscaleStress, 18, models.BandMild},
		{models.SubscaleStress, 19, models.BandModerate},
		{models.SubscaleStress, 25, models.BandModerate},
		{models.SubscaleStress, 26, models.BandSevere},
		{models.SubscaleStress, 33, models.BandSevere},
		{models.SubscaleStress, 34, models.BandExtremelySevere},
	}

	for _, tt := range tests {
		t.Run(tt.subscale.Name(), func(t *testing.T) {
			got, err := Classify(tt.score, tt.subscale)
			if err != nil {
				t.Fatalf("Classify(%v, %s) error = %v", tt.score, tt.subscale, err)
			}
			if got != tt.want {
				t.Errorf("Classify(%v, %s) = %s, want %s", tt.score, tt.subscale, got, tt.want)
			}
		})
	}
}

func TestClassify_FractionalAndNegativeScores(t *testing.T) {
	tests := []struct {
		score float64
		want  models.SeverityBand
	}{
		{-5, models.BandNormal},
		{9.5, models.BandMild},
		{27.01, models.BandExtremelySevere},
		{math.Inf(1), models.BandExtremelySevere},
		{math.Inf(-1), models.BandNormal},
	}
	for _, tt := range tests {
		got, err := Classify(tt.score, models.SubscaleDepression)
		if err != nil {
			t.Fatalf("Classify(%v) error = %v", tt.score, err)
		}
		if got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for _, s := range models.AllSubscales() {
		prev := models.BandNormal
		for score := 0; score <= constants.MaxScore; score++ {
			band, err := Classify(float64(score), s)
			if err != nil {
				t.Fatalf("Classify(%d, %s) error = %v", score, s, err)
			}
			if band < prev {
				t.Errorf("%s: band dropped from %s to %s at score %d", s, prev, band, score)
			}
			prev = band
		}
		if prev != models.BandExtremelySevere {
			t.Errorf("%s: max score classified as %s, want Extremely Severe", s, prev)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		a, _ := Classify(17, models.SubscaleAnxiety)
		b, _ := Classify(17, models.SubscaleAnxiety)
		if a != b {
			t.Fatalf("Classify returned %s then %s for identical input", a, b)
		}
	}
}

func TestClassify_UnknownSubscale(t *testing.T) {
	band, err := ClassifyLabel(5, "DASS_Other")
	var ue *models.UnknownSubscaleError
	if !errors.As(err, &ue) {
		t.Fatalf("ClassifyLabel(DASS_Other) error = %v, want UnknownSubscaleError", err)
	}
	if band != 0 {
		t.Errorf("ClassifyLabel returned band %s alongside error", band)
	}

	if _, err := Classify(5, models.Subscale(3)); !errors.As(err, &ue) {
		t.Fatalf("Classify(Subscale(3)) error = %v, want UnknownSubscaleError", err)
	}
}

func TestClassify_NaN(t *testing.T) {
	_, err := Classify(math.NaN(), models.SubscaleStress)
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Classify(NaN) error = %v, want SchemaError", err)
	}
}

func TestClassifyLabel(t *testing.T) {
	for _, label := range []string{"DASS_Depression", "Depression"} {
		got, err := ClassifyLabel(14, label)
		if err != nil {
			t.Fatalf("ClassifyLabel(14, %q) error = %v", label, err)
		}
		if got != models.BandModerate {
			t.Errorf("ClassifyLabel(14, %q) = %s, want Moderate", label, got)
		}
	}
}

func TestClassifyAll(t *testing.T) {
	long := []models.LongRecord{
		{ID: "I01", Subscale: models.SubscaleAnxiety, Score: 8},
		{ID: "I01", Subscale: models.SubscaleDepression, Score: 28},
		{ID: "I01", Subscale: models.SubscaleStress, Score: 0},
	}
	got, err := ClassifyAll(long)
	if err != nil {
		t.Fatalf("ClassifyAll() error = %v", err)
	}
	want := []models.SeverityBand{models.BandMild, models.BandExtremelySevere, models.BandNormal}
	for i := range got {
		if got[i].Band != want[i] {
			t.Errorf("row %d band = %s, want %s", i, got[i].Band, want[i])
		}
	}
	for i := range long {
		if long[i].Band != models.BandNormal {
			t.Errorf("input row %d was modified", i)
		}
	}
}

func TestClassifyAll_FailsWholeBatch(t *testing.T) {
	long := []models.LongRecord{
		{ID: "I01", Subscale: models.SubscaleAnxiety, Score: 8},
		{ID: "I01", Subscale: models.Subscale(5), Score: 8},
	}
	got, err := ClassifyAll(long)
	if err == nil {
		t.Fatal("ClassifyAll() expected error")
	}
	if got != nil {
		t.Errorf("ClassifyAll() returned %d rows alongside error", len(got))
	}
	var ue *models.UnknownSubscaleError
	if !errors.As(err, &ue) {
		t.Errorf("ClassifyAll() error = %v, want wrapped UnknownSubscaleError", err)
	}
}

func TestTableValidate(t *testing.T) {
	if err := DefaultTable().Validate(); err != nil {
		t.Fatalf("DefaultTable().Validate() error = %v", err)
	}

	bad := DefaultTable()
	bad[models.SubscaleStress] = Bounds{14, 14, 25, 33}
	if _, err := NewClassifier(bad); err == nil {
		t.Error("NewClassifier() accepted overlapping bounds")
	}
}

func TestBoundsFor(t *testing.T) {
	b, err := BoundsFor(models.SubscaleAnxiety)
	if err != nil {
		t.Fatalf("BoundsFor() error = %v", err)
	}
	if b != (Bounds{7, 9, 14, 19}) {
		t.Errorf("BoundsFor(Anxiety) = %v", b)
	}
	if _, err := BoundsFor(models.Subscale(-1)); err == nil {
		t.Error("BoundsFor(-1) expected error")
	}
}
