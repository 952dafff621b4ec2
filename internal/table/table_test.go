package table

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/dasstrial/internal/models"
)

func sampleWide() []models.WideRecord {
	var a, b models.WideRecord
	a.ID, a.Group, a.Timepoint = "I01", "intervention", "baseline"
	b.ID, b.Group, b.Timepoint = "I01", "intervention", "3_months"
	for q := range a.Items {
		a.Items[q] = q % 4
		b.Items[q] = 1
	}
	a.Totals = [3]int{9, 12, 10}
	b.Totals = [3]int{7, 7, 7}
	return []models.WideRecord{a, b}
}

func sampleLong() []models.LongRecord {
	return []models.LongRecord{
		{ID: "C02", Group: models.GroupControl, Timepoint: models.TimepointBaseline, Subscale: models.SubscaleAnxiety, Score: 8, Band: models.BandMild},
		{ID: "C02", Group: models.GroupControl, Timepoint: models.TimepointBaseline, Subscale: models.SubscaleDepression, Score: 42, Band: models.BandExtremelySevere},
		{ID: "C02", Group: models.GroupControl, Timepoint: models.TimepointMonth12, Subscale: models.SubscaleStress, Score: 0, Band: models.BandNormal},
	}
}

func TestWriteWide_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWide(&buf, sampleWide()); err != nil {
		t.Fatalf("WriteWide() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	header := strings.Split(lines[0], ",")
	if diff := cmp.Diff(WideColumns(), header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if header[3] != "Q1" || header[23] != "Q21" || header[26] != "DASS_Stress" {
		t.Errorf("unexpected header layout: %v", header)
	}
	if !strings.HasPrefix(lines[2], "I01,intervention,3_months,1,1,") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestWide_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWide(&buf, sampleWide()); err != nil {
		t.Fatalf("WriteWide() error = %v", err)
	}
	got, err := ReadWide(&buf)
	if err != nil {
		t.Fatalf("ReadWide() error = %v", err)
	}
	if diff := cmp.Diff(sampleWide(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteWide_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := WriteWide(&a, sampleWide()); err != nil {
		t.Fatal(err)
	}
	if err := WriteWide(&b, sampleWide()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("WriteWide output differs between identical calls")
	}
}

func TestLong_RoundTripCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLong(&buf, sampleLong()); err != nil {
		t.Fatalf("WriteLong() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "id,group,timepoint,subscale,score,severity_band\n") {
		t.Errorf("unexpected header in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "C02,control,baseline,DASS_Depression,42,Extremely Severe") {
		t.Errorf("missing expected row in %q", buf.String())
	}

	got, err := ReadLong(&buf)
	if err != nil {
		t.Fatalf("ReadLong() error = %v", err)
	}
	if diff := cmp.Diff(sampleLong(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLong_RoundTripArrow(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLongArrow(&buf, sampleLong()); err != nil {
		t.Fatalf("WriteLongArrow() error = %v", err)
	}
	got, err := ReadLongArrow(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadLongArrow() error = %v", err)
	}
	if diff := cmp.Diff(sampleLong(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLong_ArrowThroughPipe(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(WriteLongArrow(pw, sampleLong()))
	}()
	got, err := ReadLongArrow(pr)
	if err != nil {
		t.Fatalf("ReadLongArrow() error = %v", err)
	}
	if diff := cmp.Diff(sampleLong(), got); diff != "" {
		t.Errorf("pipe mismatch (-want +got):\n%s", diff)
	}
}

func TestLongArrowSchema_OrderedColumns(t *testing.T) {
	got := OrderedColumns(LongArrowSchema())
	want := []string{ColTimepoint, ColBand}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OrderedColumns() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteLong_InvalidSubscale(t *testing.T) {
	bad := sampleLong()
	bad[1].Subscale = models.Subscale(7)
	var ue *models.UnknownSubscaleError
	if err := WriteLong(&bytes.Buffer{}, bad); !errors.As(err, &ue) {
		t.Errorf("WriteLong() error = %v, want UnknownSubscaleError", err)
	}
	if err := WriteLongArrow(&bytes.Buffer{}, bad); !errors.As(err, &ue) {
		t.Errorf("WriteLongArrow() error = %v, want UnknownSubscaleError", err)
	}
}

func TestWriteLong_UnclassifiedBand(t *testing.T) {
	bad := sampleLong()
	bad[0].Band = models.BandUnset
	var se *models.SchemaError
	if err := WriteLong(&bytes.Buffer{}, bad); !errors.As(err, &se) || se.Column != ColBand {
		t.Errorf("WriteLong() error = %v, want SchemaError on %s", err, ColBand)
	}
	if err := WriteLongArrow(&bytes.Buffer{}, bad); !errors.As(err, &se) {
		t.Errorf("WriteLongArrow() error = %v, want SchemaError", err)
	}
}

func TestReadWide_Errors(t *testing.T) {
	header := strings.Join(WideColumns(), ",")
	row := "I01,intervention,baseline" + strings.Repeat(",1", 21) + ",7,7,7"

	tests := []struct {
		name   string
		input  string
		column string
	}{
		{"missing column", strings.Replace(header, ",DASS_Stress", "", 1) + "\n" + strings.TrimSuffix(row, ",7") + "\n", "DASS_Stress"},
		{"empty item", header + "\n" + strings.Replace(row, ",1,", ",,", 1) + "\n", "Q1"},
		{"header only", header + "\n", ""},
		{"empty input", "", ""},
		{"reordered columns", strings.Replace(header, "id,group", "group,id", 1) + "\n" + row + "\n", "group"},
		{"unexpected column", header + ",notes\n" + row + ",x\n", "notes"},
		{"short row", header + "\n" + strings.TrimSuffix(row, ",7") + "\n", ""},
		{"not a number", header + "\n" + strings.Replace(row, ",1,", ",x,", 1) + "\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadWide(strings.NewReader(tt.input))
			var se *models.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("ReadWide() error = %v, want SchemaError", err)
			}
			if tt.column != "" && se.Column != tt.column {
				t.Errorf("SchemaError.Column = %q, want %q", se.Column, tt.column)
			}
		})
	}
}

func TestReadLong_Errors(t *testing.T) {
	header := "id,group,timepoint,subscale,score,severity_band\n"
	tests := []struct {
		name  string
		row   string
		check func(err error) bool
	}{
		{"unknown subscale", "I01,intervention,baseline,DASS_Anger,4,Normal", func(err error) bool {
			var ue *models.UnknownSubscaleError
			return errors.As(err, &ue)
		}},
		{"unknown timepoint", "I01,intervention,2_months,DASS_Stress,4,Normal", func(err error) bool {
			var se *models.SchemaError
			return errors.As(err, &se) && se.Row == 1
		}},
		{"unknown band", "I01,intervention,baseline,DASS_Stress,4,Terrible", func(err error) bool {
			var se *models.SchemaError
			return errors.As(err, &se)
		}},
		{"score out of range", "I01,intervention,baseline,DASS_Stress,44,Normal", func(err error) bool {
			var se *models.SchemaError
			return errors.As(err, &se) && se.Column == ColScore
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLong(strings.NewReader(header + tt.row + "\n"))
			if err == nil || !tt.check(err) {
				t.Errorf("ReadLong() error = %v", err)
			}
		})
	}
}

func TestReadLong_HeaderOnly(t *testing.T) {
	header := strings.Join(LongColumns(), ",") + "\n"
	_, err := ReadLong(strings.NewReader(header))
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("ReadLong() error = %v, want SchemaError", err)
	}
	if !strings.Contains(se.Reason, "no data rows") {
		t.Errorf("SchemaError.Reason = %q, want no data rows", se.Reason)
	}
}

func TestReadLongArrow_NotArrow(t *testing.T) {
	_, err := ReadLongArrow(bytes.NewReader([]byte("id,group\n")))
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Errorf("ReadLongArrow() error = %v, want SchemaError", err)
	}
}

func TestFiles_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	widePath := filepath.Join(dir, "wide.csv")
	if err := WriteWideFile(widePath, sampleWide()); err != nil {
		t.Fatalf("WriteWideFile() error = %v", err)
	}
	wide, err := ReadWideFile(widePath)
	if err != nil {
		t.Fatalf("ReadWideFile() error = %v", err)
	}
	if len(wide) != 2 {
		t.Errorf("ReadWideFile() returned %d rows, want 2", len(wide))
	}

	for _, name := range []string{"long.csv", "long.arrow"} {
		path := filepath.Join(dir, name)
		write := WriteLongFile
		if filepath.Ext(name) == ".arrow" {
			write = WriteLongArrowFile
		}
		if err := write(path, sampleLong()); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		got, err := ReadLongFile(path)
		if err != nil {
			t.Fatalf("ReadLongFile(%s) error = %v", name, err)
		}
		if diff := cmp.Diff(sampleLong(), got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestWriteFile_FailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.csv")
	bad := sampleLong()
	bad[0].Subscale = models.Subscale(9)
	if err := WriteLongFile(path, bad); err == nil {
		t.Fatal("WriteLongFile() expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("output file exists after failed write: %v", err)
	}
}
