// Package table reads and writes the pipeline's tabular files.
//
// The wide table (one row per participant and timepoint, items Q1..Q21 and
// the three pre-scaling totals) and the long table (one row per participant,
// timepoint and subscale) are exchanged as CSV. The long table can also be
// written as an Arrow IPC stream in which timepoint and severity_band are
// ordered dictionary columns, so downstream readers keep ordinal order.
package table

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/scoring"
)

// Column names shared by both tables.
const (
	ColID        = "id"
	ColGroup     = "group"
	ColTimepoint = "timepoint"
	ColSubscale  = "subscale"
	ColScore     = "score"
	ColBand      = "severity_band"
)

// WideColumns returns the wide table header in file order.
func WideColumns() []string {
	cols := []string{ColID, ColGroup, ColTimepoint}
	for q := 1; q <= constants.NumQuestions; q++ {
		cols = append(cols, scoring.QuestionID(q))
	}
	for _, s := range models.AllSubscales() {
		cols = append(cols, s.Column())
	}
	return cols
}

// LongColumns returns the long table header in file order.
func LongColumns() []string {
	return []string{ColID, ColGroup, ColTimepoint, ColSubscale, ColScore, ColBand}
}

// WideSchema is the Arrow schema of the wide table.
func WideSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(WideColumns()))
	for _, name := range WideColumns() {
		fields = append(fields, arrow.Field{Name: name, Type: wideType(name)})
	}
	return arrow.NewSchema(fields, nil)
}

func wideType(name string) arrow.DataType {
	switch name {
	case ColID, ColGroup, ColTimepoint:
		return arrow.BinaryTypes.String
	default:
		return arrow.PrimitiveTypes.Int64
	}
}

// LongSchema is the Arrow schema of the long CSV table.
func LongSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: ColID, Type: arrow.BinaryTypes.String},
		{Name: ColGroup, Type: arrow.BinaryTypes.String},
		{Name: ColTimepoint, Type: arrow.BinaryTypes.String},
		{Name: ColSubscale, Type: arrow.BinaryTypes.String},
		{Name: ColScore, Type: arrow.PrimitiveTypes.Int64},
		{Name: ColBand, Type: arrow.BinaryTypes.String},
	}, nil)
}

// orderedType is the dictionary type used for ordinal categorical columns.
func orderedType() *arrow.DictionaryType {
	return &arrow.DictionaryType{
		IndexType: arrow.PrimitiveTypes.Int8,
		ValueType: arrow.BinaryTypes.String,
		Ordered:   true,
	}
}

// LongArrowSchema is the schema of the long table's Arrow IPC stream.
func LongArrowSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: ColID, Type: arrow.BinaryTypes.String},
		{Name: ColGroup, Type: arrow.BinaryTypes.String},
		{Name: ColTimepoint, Type: orderedType()},
		{Name: ColSubscale, Type: arrow.BinaryTypes.String},
		{Name: ColScore, Type: arrow.PrimitiveTypes.Int64},
		{Name: ColBand, Type: orderedType()},
	}, nil)
}

// checkHeader verifies that a CSV header names exactly the schema's columns,
// in schema order.
func checkHeader(header []string, schema *arrow.Schema) error {
	seen := make(map[string]int, len(header))
	for _, name := range header {
		seen[name]++
	}
	for _, f := range schema.Fields() {
		switch seen[f.Name] {
		case 0:
			return &models.SchemaError{Column: f.Name, Reason: "missing column"}
		case 1:
		default:
			return &models.SchemaError{Column: f.Name, Reason: "duplicate column"}
		}
	}
	if len(header) != schema.NumFields() {
		for _, name := range header {
			if len(schema.FieldIndices(name)) == 0 {
				return &models.SchemaError{Column: name, Reason: "unexpected column"}
			}
		}
	}
	for i, f := range schema.Fields() {
		if header[i] != f.Name {
			return &models.SchemaError{Column: header[i], Reason: fmt.Sprintf("column %d is %q, want %q", i+1, header[i], f.Name)}
		}
	}
	return nil
}
