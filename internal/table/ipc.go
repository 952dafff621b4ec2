package table

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/dasstrial/internal/models"
)

// WriteLongArrow writes the long table as an Arrow IPC stream. The timepoint and
// severity_band columns are ordered dictionaries whose dictionary lists every
// level in ordinal order, so codes compare the same way the enums do.
func WriteLongArrow(w io.Writer, records []models.LongRecord) error {
	mem := memory.NewGoAllocator()
	schema := LongArrowSchema()

	rec, err := buildLongArrow(mem, schema, records)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	return fw.Close()
}

func buildLongArrow(mem memory.Allocator, schema *arrow.Schema, records []models.LongRecord) (arrow.Record, error) {
	ids := array.NewStringBuilder(mem)
	defer ids.Release()
	groups := array.NewStringBuilder(mem)
	defer groups.Release()
	subscales := array.NewStringBuilder(mem)
	defer subscales.Release()
	scores := array.NewInt64Builder(mem)
	defer scores.Release()

	tpCodes := make([]int8, 0, len(records))
	bandCodes := make([]int8, 0, len(records))
	for _, r := range records {
		if !r.Subscale.Valid() {
			return nil, &models.UnknownSubscaleError{Label: r.Subscale.Name()}
		}
		if !r.Timepoint.Valid() || !r.Band.Valid() || !r.Group.Valid() {
			return nil, &models.SchemaError{Reason: fmt.Sprintf("record %s has an invalid category", r.ID)}
		}
		ids.Append(r.ID)
		groups.Append(r.Group.String())
		subscales.Append(r.Subscale.Column())
		scores.Append(int64(r.Score))
		tpCodes = append(tpCodes, int8(r.Timepoint))
		bandCodes = append(bandCodes, int8(r.Band))
	}

	tpLevels := make([]string, 0, len(models.AllTimepoints()))
	for _, tp := range models.AllTimepoints() {
		tpLevels = append(tpLevels, tp.String())
	}
	bandLevels := make([]string, 0, len(models.AllSeverityBands()))
	for _, b := range models.AllSeverityBands() {
		bandLevels = append(bandLevels, b.String())
	}

	cols := []arrow.Array{
		ids.NewArray(),
		groups.NewArray(),
		orderedColumn(mem, tpLevels, tpCodes),
		subscales.NewArray(),
		scores.NewArray(),
		orderedColumn(mem, bandLevels, bandCodes),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	return array.NewRecord(schema, cols, int64(len(records))), nil
}

// orderedColumn builds an ordered dictionary array from level labels and codes.
func orderedColumn(mem memory.Allocator, levels []string, codes []int8) arrow.Array {
	ib := array.NewInt8Builder(mem)
	defer ib.Release()
	ib.AppendValues(codes, nil)
	indices := ib.NewArray()
	defer indices.Release()

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues(levels, nil)
	dict := sb.NewArray()
	defer dict.Release()

	return array.NewDictionaryArray(orderedType(), indices, dict)
}

// ReadLongArrow reads a long table written by WriteLongArrow.
func ReadLongArrow(r io.Reader) ([]models.LongRecord, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, &models.SchemaError{Reason: fmt.Sprintf("not an arrow stream: %v", err)}
	}
	defer rdr.Release()

	cols, err := resolveColumns(rdr.Schema(), LongArrowSchema())
	if err != nil {
		return nil, err
	}

	var out []models.LongRecord
	row := 0
	for rdr.Next() {
		rec := rdr.Record()
		for j := 0; j < int(rec.NumRows()); j++ {
			row++
			lr, err := longFromArrow(rec, cols, j)
			if err != nil {
				return nil, models.AtRow(err, row)
			}
			out = append(out, lr)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow record: %w", err)
	}
	if row == 0 {
		return nil, &models.SchemaError{Reason: "table has no data rows"}
	}
	return out, nil
}

func longFromArrow(rec arrow.Record, cols map[string]int, i int) (models.LongRecord, error) {
	labels := make(map[string]string, 5)
	for _, name := range []string{ColID, ColGroup, ColSubscale} {
		v, err := stringAt(rec, cols, name, i)
		if err != nil {
			return models.LongRecord{}, err
		}
		labels[name] = v
	}
	for _, name := range []string{ColTimepoint, ColBand} {
		v, err := dictionaryAt(rec, cols, name, i)
		if err != nil {
			return models.LongRecord{}, err
		}
		labels[name] = v
	}
	score, err := intAt(rec, cols, ColScore, i)
	if err != nil {
		return models.LongRecord{}, err
	}
	return parseLong(labels, score)
}

func dictionaryAt(rec arrow.Record, cols map[string]int, name string, i int) (string, error) {
	col, ok := rec.Column(cols[name]).(*array.Dictionary)
	if !ok {
		return "", &models.SchemaError{Column: name, Reason: "not a dictionary column"}
	}
	if col.IsNull(i) {
		return "", &models.SchemaError{Column: name, Reason: "missing value"}
	}
	dict, ok := col.Dictionary().(*array.String)
	if !ok {
		return "", &models.SchemaError{Column: name, Reason: "dictionary values are not strings"}
	}
	return dict.Value(col.GetValueIndex(i)), nil
}

// OrderedColumns returns the names of the ordered dictionary columns in schema.
func OrderedColumns(schema *arrow.Schema) []string {
	var names []string
	for _, f := range schema.Fields() {
		if dt, ok := f.Type.(*arrow.DictionaryType); ok && dt.Ordered {
			names = append(names, f.Name)
		}
	}
	return names
}
