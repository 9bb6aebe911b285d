package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// WriteCSV writes the table with a leading unnamed index column holding the
// row number. Missing numbers and dates are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.columns)+1)
	header = append(header, "")
	for _, c := range t.columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(t.columns)+1)
	for i, row := range t.rows {
		record[0] = strconv.Itoa(i)
		for c, cell := range row {
			record[c+1] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(cell any) string {
	switch v := cell.(type) {
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.DateOnly)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
