package models

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
)

func TestParseTimepoint(t *testing.T) {
	tests := []struct {
		label   string
		want    Timepoint
		wantErr bool
	}{
		{"baseline", TimepointBaseline, false},
		{"3_months", TimepointMonth3, false},
		{"6_months", TimepointMonth6, false},
		{"9_months", TimepointMonth9, false},
		{"12_months", TimepointMonth12, false},
		{"15_months", 0, true},
		{"Baseline", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseTimepoint(tt.label)
			if tt.wantErr {
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("ParseTimepoint(%q) error = %v, want SchemaError", tt.label, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimepoint(%q) error = %v", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("ParseTimepoint(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestTimepointOrderIsChronological(t *testing.T) {
	labels := []string{"12_months", "3_months", "baseline", "9_months", "6_months"}
	tps := make([]Timepoint, len(labels))
	for i, l := range labels {
		tp, err := ParseTimepoint(l)
		if err != nil {
			t.Fatalf("ParseTimepoint(%q) error = %v", l, err)
		}
		tps[i] = tp
	}
	sort.Slice(tps, func(i, j int) bool { return tps[i] < tps[j] })

	// Lexical order would put "12_months" before "3_months".
	want := []string{"baseline", "3_months", "6_months", "9_months", "12_months"}
	for i, tp := range tps {
		if tp.String() != want[i] {
			t.Errorf("sorted[%d] = %s, want %s", i, tp, want[i])
		}
	}
}

func TestParseSubscale(t *testing.T) {
	tests := []struct {
		label   string
		want    Subscale
		wantErr bool
	}{
		{"DASS_Anxiety", SubscaleAnxiety, false},
		{"DASS_Depression", SubscaleDepression, false},
		{"DASS_Stress", SubscaleStress, false},
		{"Stress", SubscaleStress, false},
		{"DASS_Other", 0, true},
		{"depression", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseSubscale(tt.label)
			if tt.wantErr {
				var ue *UnknownSubscaleError
				if !errors.As(err, &ue) {
					t.Fatalf("ParseSubscale(%q) error = %v, want UnknownSubscaleError", tt.label, err)
				}
				if ue.Label != tt.label {
					t.Errorf("UnknownSubscaleError.Label = %q, want %q", ue.Label, tt.label)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSubscale(%q) error = %v", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("ParseSubscale(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestSubscaleColumn(t *testing.T) {
	if got := SubscaleDepression.Column(); got != "DASS_Depression" {
		t.Errorf("Column() = %q, want DASS_Depression", got)
	}
	if Subscale(7).Valid() {
		t.Error("Subscale(7).Valid() = true, want false")
	}
}

func TestSeverityBandOrdering(t *testing.T) {
	bands := AllSeverityBands()
	for i := 1; i < len(bands); i++ {
		if !bands[i].MoreSevereThan(bands[i-1]) {
			t.Errorf("%s should be more severe than %s", bands[i], bands[i-1])
		}
	}

	// "Extremely Severe" sorts before "Mild" lexically; the enum must not.
	if BandExtremelySevere < BandMild {
		t.Error("BandExtremelySevere ranks below BandMild")
	}
}

func TestBandUnset(t *testing.T) {
	if BandUnset.Valid() {
		t.Error("BandUnset should not be valid")
	}
	if _, err := BandUnset.MarshalText(); err == nil {
		t.Error("MarshalText() should reject BandUnset")
	}
	if got, err := ParseSeverityBand(BandUnset.String()); err == nil {
		t.Errorf("ParseSeverityBand(%q) = %v, want error", BandUnset.String(), got)
	}
}

func TestParseSeverityBand(t *testing.T) {
	for _, b := range AllSeverityBands() {
		got, err := ParseSeverityBand(b.String())
		if err != nil {
			t.Fatalf("ParseSeverityBand(%q) error = %v", b.String(), err)
		}
		if got != b {
			t.Errorf("ParseSeverityBand(%q) = %v, want %v", b.String(), got, b)
		}
	}
	if _, err := ParseSeverityBand("Catastrophic"); err == nil {
		t.Error("ParseSeverityBand(Catastrophic) expected error")
	}
}

func TestParticipantID(t *testing.T) {
	tests := []struct {
		group Group
		seq   int
		want  string
	}{
		{GroupIntervention, 1, "I01"},
		{GroupIntervention, 20, "I20"},
		{GroupControl, 7, "C07"},
		{GroupControl, 120, "C120"},
	}
	for _, tt := range tests {
		if got := ParticipantID(tt.group, tt.seq); got != tt.want {
			t.Errorf("ParticipantID(%v, %d) = %q, want %q", tt.group, tt.seq, got, tt.want)
		}
	}
}

func TestLongRecordJSON(t *testing.T) {
	rec := LongRecord{
		ID:        "I03",
		Group:     GroupIntervention,
		Timepoint: TimepointMonth6,
		Subscale:  SubscaleStress,
		Score:     26,
		Band:      BandSevere,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"I03","group":"intervention","timepoint":"6_months","subscale":"DASS_Stress","score":26,"severity_band":"Severe"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back LongRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != rec {
		t.Errorf("Unmarshal() = %+v, want %+v", back, rec)
	}
}

func TestLongRecordLess(t *testing.T) {
	tests := []struct {
		name string
		a, b LongRecord
	}{
		{
			name: "timepoint ordinal",
			a:    LongRecord{ID: "C01", Group: GroupControl, Timepoint: TimepointMonth3, Subscale: SubscaleStress},
			b:    LongRecord{ID: "C01", Group: GroupControl, Timepoint: TimepointMonth12, Subscale: SubscaleAnxiety},
		},
		{
			name: "intervention before control",
			a:    LongRecord{ID: "I02", Group: GroupIntervention},
			b:    LongRecord{ID: "C01", Group: GroupControl},
		},
		{
			name: "numeric participant sequence",
			a:    LongRecord{ID: "I11", Group: GroupIntervention},
			b:    LongRecord{ID: "I100", Group: GroupIntervention},
		},
		{
			name: "subscale within occasion",
			a:    LongRecord{ID: "I01", Group: GroupIntervention, Subscale: SubscaleAnxiety},
			b:    LongRecord{ID: "I01", Group: GroupIntervention, Subscale: SubscaleStress},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.a.Less(tt.b) {
				t.Errorf("%+v should sort before %+v", tt.a, tt.b)
			}
			if tt.b.Less(tt.a) {
				t.Errorf("%+v should not sort before %+v", tt.b, tt.a)
			}
		})
	}
}

func TestParticipantSeq(t *testing.T) {
	tests := map[string]int{
		"I07":  7,
		"C100": 100,
		"I11":  11,
		"X":    0,
		"":     0,
		"Cab":  0,
	}
	for id, want := range tests {
		if got := ParticipantSeq(id); got != want {
			t.Errorf("ParticipantSeq(%q) = %d, want %d", id, got, want)
		}
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := AtRow(&SchemaError{Column: "Q4", Reason: "value 5 out of range"}, 12)
	want := "schema error: row 12, column Q4: value 5 out of range"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
