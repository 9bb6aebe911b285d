package dataset

import (
	"fmt"
	"io"
	"time"

	parquet "github.com/parquet-go/parquet-go"
)

// ParquetSchema maps the table onto a flat Parquet schema with one optional
// leaf per column.
func ParquetSchema(t *Table) *parquet.Schema {
	group := make(parquet.Group, len(t.columns))
	for _, c := range t.columns {
		if _, dup := group[c.Name]; dup {
			continue
		}
		group[c.Name] = parquet.Optional(leafFor(c.Kind))
	}
	return parquet.NewSchema("team_game", group)
}

func leafFor(kind Kind) parquet.Node {
	switch kind {
	case Integer:
		return parquet.Int(64)
	case Text:
		return parquet.String()
	case Bool:
		return parquet.Leaf(parquet.BooleanType)
	case Date:
		return parquet.Date()
	default:
		return parquet.Leaf(parquet.DoubleType)
	}
}

// WriteParquet writes the table as a single Snappy-compressed Parquet file.
// Missing values are written as nulls.
func WriteParquet(w io.Writer, t *Table) error {
	schema := ParquetSchema(t)

	// Column position in the table -> leaf index in the schema.
	leaves := make([]int, len(t.columns))
	for i, c := range t.columns {
		leaf, ok := schema.Lookup(c.Name)
		if !ok {
			return fmt.Errorf("column %q missing from parquet schema", c.Name)
		}
		leaves[i] = leaf.ColumnIndex
	}
	width := len(schema.Columns())

	pw := parquet.NewWriter(w, schema, parquet.Compression(&parquet.Snappy))
	rows := make([]parquet.Row, 0, len(t.rows))
	for _, row := range t.rows {
		out := make(parquet.Row, width)
		for i := range out {
			out[i] = parquet.NullValue().Level(0, 0, i)
		}
		for i, cell := range row {
			// A repeated column name keeps its first cell.
			if t.index[t.columns[i].Name] != i {
				continue
			}
			if !IsNull(cell) {
				out[leaves[i]] = parquetValue(cell).Level(0, 1, leaves[i])
			}
		}
		rows = append(rows, out)
	}

	if _, err := pw.WriteRows(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return pw.Close()
}

func parquetValue(cell any) parquet.Value {
	switch v := cell.(type) {
	case float64:
		return parquet.DoubleValue(v)
	case int:
		return parquet.Int64Value(int64(v))
	case string:
		return parquet.ByteArrayValue([]byte(v))
	case bool:
		return parquet.BooleanValue(v)
	case time.Time:
		days := v.UTC().Truncate(24*time.Hour).Unix() / 86400
		return parquet.Int32Value(int32(days))
	default:
		return parquet.NullValue()
	}
}
