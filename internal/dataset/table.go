package dataset

import (
	"fmt"
	"math"
	"time"
)

// Kind is the type of every cell in a column.
type Kind int

const (
	Number Kind = iota
	Integer
	Text
	Bool
	Date
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Text:
		return "text"
	case Bool:
		return "bool"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column names a column and fixes its cell type.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Row holds one cell per column. Cells are float64 (Number, NaN for
// missing), int (Integer), string (Text), bool (Bool) or time.Time (Date,
// zero for missing).
type Row []any

// Table is an ordered set of typed columns and the rows under them.
type Table struct {
	columns []Column
	index   map[string]int
	rows    []Row
}

// NewTable creates an empty table. When a name repeats, lookups resolve to
// its first occurrence.
func NewTable(columns []Column) *Table {
	t := &Table{
		columns: append([]Column(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		if _, ok := t.index[c.Name]; !ok {
			t.index[c.Name] = i
		}
	}
	return t
}

// Columns returns the table's columns in order.
func (t *Table) Columns() []Column {
	return t.columns
}

// Rows returns the rows in insertion order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Append adds a row after checking every cell against its column kind.
func (t *Table) Append(row Row) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.columns))
	}
	for i, cell := range row {
		if err := checkCell(t.columns[i], cell); err != nil {
			return err
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// Get returns the named cell of row i, or nil if the column does not exist.
func (t *Table) Get(i int, name string) any {
	c := t.ColumnIndex(name)
	if c < 0 || i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i][c]
}

func checkCell(col Column, cell any) error {
	ok := false
	switch col.Kind {
	case Number:
		_, ok = cell.(float64)
	case Integer:
		_, ok = cell.(int)
	case Text:
		_, ok = cell.(string)
	case Bool:
		_, ok = cell.(bool)
	case Date:
		_, ok = cell.(time.Time)
	}
	if !ok {
		return fmt.Errorf("column %q: %T is not a %s cell", col.Name, cell, col.Kind)
	}
	return nil
}

// IsNull reports whether a cell holds a missing value.
func IsNull(cell any) bool {
	switch v := cell.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case time.Time:
		return v.IsZero()
	}
	return false
}
