package table

import (
	"bufio"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// WriteWide writes the wide table as CSV with a header row.
func WriteWide(w io.Writer, records []models.WideRecord) error {
	schema := WideSchema()
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	groups := b.Field(1).(*array.StringBuilder)
	timepoints := b.Field(2).(*array.StringBuilder)
	for _, r := range records {
		ids.Append(r.ID)
		groups.Append(r.Group)
		timepoints.Append(r.Timepoint)
		for q, v := range r.Items {
			b.Field(3 + q).(*array.Int64Builder).Append(int64(v))
		}
		for s, v := range r.Totals {
			b.Field(3 + constants.NumQuestions + s).(*array.Int64Builder).Append(int64(v))
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeCSV(w, schema, rec)
}

// WriteLong writes the long table as CSV with a header row. Subscales are
// written as their column label and bands as their display label.
func WriteLong(w io.Writer, records []models.LongRecord) error {
	schema := LongSchema()
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for _, r := range records {
		if !r.Subscale.Valid() {
			return &models.UnknownSubscaleError{Label: r.Subscale.Name()}
		}
		if !r.Band.Valid() {
			return &models.SchemaError{Column: ColBand, Reason: fmt.Sprintf("record %s has band %s", r.ID, r.Band)}
		}
		b.Field(0).(*array.StringBuilder).Append(r.ID)
		b.Field(1).(*array.StringBuilder).Append(r.Group.String())
		b.Field(2).(*array.StringBuilder).Append(r.Timepoint.String())
		b.Field(3).(*array.StringBuilder).Append(r.Subscale.Column())
		b.Field(4).(*array.Int64Builder).Append(int64(r.Score))
		b.Field(5).(*array.StringBuilder).Append(r.Band.String())
	}

	rec := b.NewRecord()
	defer rec.Release()
	return writeCSV(w, schema, rec)
}

func writeCSV(w io.Writer, schema *arrow.Schema, rec arrow.Record) error {
	cw := csv.NewWriter(w, schema, csv.WithHeader(true))
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return cw.Error()
}

// rowVisitor is called for each decoded row; row is the 1-based data row.
type rowVisitor func(rec arrow.Record, cols map[string]int, i, row int) error

// readCSV decodes a headed CSV stream against schema and visits each row in
// order. The header must list the schema's columns in schema order; empty
// cells decode as missing values.
func readCSV(r io.Reader, schema *arrow.Schema, visit rowVisitor) (int, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading csv header: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return 0, &models.SchemaError{Reason: "table has no header"}
	}
	names, err := splitHeader(line)
	if err != nil {
		return 0, err
	}
	if err := checkHeader(names, schema); err != nil {
		return 0, err
	}

	cols := make(map[string]int, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[f.Name] = i
	}

	rdr := csv.NewReader(io.MultiReader(strings.NewReader(line), br), schema,
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
	)
	defer rdr.Release()

	row := 0
	for rdr.Next() {
		if err := rdr.Err(); err != nil {
			return row, &models.SchemaError{Row: row + 1, Reason: err.Error()}
		}
		rec := rdr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row++
			if err := visit(rec, cols, i, row); err != nil {
				return row, err
			}
		}
	}
	if err := rdr.Err(); err != nil {
		return row, &models.SchemaError{Row: row + 1, Reason: err.Error()}
	}
	if row == 0 {
		return 0, &models.SchemaError{Reason: "table has no data rows"}
	}
	return row, nil
}

// splitHeader parses the header line with the same quoting rules as the body.
func splitHeader(line string) ([]string, error) {
	names, err := stdcsv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return nil, &models.SchemaError{Reason: fmt.Sprintf("malformed header: %v", err)}
	}
	return names, nil
}

// resolveColumns maps each expected column to its index in the file schema.
func resolveColumns(got, want *arrow.Schema) (map[string]int, error) {
	cols := make(map[string]int, want.NumFields())
	for _, f := range want.Fields() {
		idx := got.FieldIndices(f.Name)
		if len(idx) == 0 {
			return nil, &models.SchemaError{Column: f.Name, Reason: "missing column"}
		}
		if len(idx) > 1 {
			return nil, &models.SchemaError{Column: f.Name, Reason: "duplicate column"}
		}
		if !arrow.TypeEqual(got.Field(idx[0]).Type, f.Type) {
			return nil, &models.SchemaError{Column: f.Name, Reason: fmt.Sprintf("type %s, want %s", got.Field(idx[0]).Type, f.Type)}
		}
		cols[f.Name] = idx[0]
	}
	return cols, nil
}

func stringAt(rec arrow.Record, cols map[string]int, name string, i int) (string, error) {
	col := rec.Column(cols[name])
	if col.IsNull(i) {
		return "", &models.SchemaError{Column: name, Reason: "missing value"}
	}
	return col.(*array.String).Value(i), nil
}

func intAt(rec arrow.Record, cols map[string]int, name string, i int) (int, error) {
	col := rec.Column(cols[name])
	if col.IsNull(i) {
		return 0, &models.SchemaError{Column: name, Reason: "missing value"}
	}
	return int(col.(*array.Int64).Value(i)), nil
}

// ReadWide reads a wide CSV table. Values are decoded but not range-checked;
// use scoring.VerifyWide for that.
func ReadWide(r io.Reader) ([]models.WideRecord, error) {
	var out []models.WideRecord
	questionCols := WideColumns()[3 : 3+constants.NumQuestions]

	_, err := readCSV(r, WideSchema(), func(rec arrow.Record, cols map[string]int, i, row int) error {
		var w models.WideRecord
		var err error
		if w.ID, err = stringAt(rec, cols, ColID, i); err != nil {
			return models.AtRow(err, row)
		}
		if w.Group, err = stringAt(rec, cols, ColGroup, i); err != nil {
			return models.AtRow(err, row)
		}
		if w.Timepoint, err = stringAt(rec, cols, ColTimepoint, i); err != nil {
			return models.AtRow(err, row)
		}
		for q, name := range questionCols {
			if w.Items[q], err = intAt(rec, cols, name, i); err != nil {
				return models.AtRow(err, row)
			}
		}
		for _, s := range models.AllSubscales() {
			if w.Totals[s], err = intAt(rec, cols, s.Column(), i); err != nil {
				return models.AtRow(err, row)
			}
		}
		out = append(out, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadLong reads a long CSV table, parsing every categorical column into its enum.
func ReadLong(r io.Reader) ([]models.LongRecord, error) {
	var out []models.LongRecord

	_, err := readCSV(r, LongSchema(), func(rec arrow.Record, cols map[string]int, i, row int) error {
		labels := make(map[string]string, 5)
		for _, name := range []string{ColID, ColGroup, ColTimepoint, ColSubscale, ColBand} {
			v, err := stringAt(rec, cols, name, i)
			if err != nil {
				return models.AtRow(err, row)
			}
			labels[name] = v
		}
		score, err := intAt(rec, cols, ColScore, i)
		if err != nil {
			return models.AtRow(err, row)
		}

		lr, err := parseLong(labels, score)
		if err != nil {
			return models.AtRow(err, row)
		}
		out = append(out, lr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseLong(labels map[string]string, score int) (models.LongRecord, error) {
	lr := models.LongRecord{ID: labels[ColID], Score: score}
	var err error
	if lr.Group, err = models.ParseGroup(labels[ColGroup]); err != nil {
		return lr, err
	}
	if lr.Timepoint, err = models.ParseTimepoint(labels[ColTimepoint]); err != nil {
		return lr, err
	}
	if lr.Subscale, err = models.ParseSubscale(labels[ColSubscale]); err != nil {
		return lr, err
	}
	if lr.Band, err = models.ParseSeverityBand(labels[ColBand]); err != nil {
		return lr, err
	}
	if score < 0 || score > constants.MaxScore {
		return lr, &models.SchemaError{Column: ColScore, Reason: fmt.Sprintf("score %d out of range [0,%d]", score, constants.MaxScore)}
	}
	return lr, nil
}
