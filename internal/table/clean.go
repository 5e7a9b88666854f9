package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nconklindev/datasweep/internal/apperr"
)

// FillSummary reports what FillMissing changed.
type FillSummary struct {
	// Filled maps a column name to the number of cells replaced by its mean.
	Filled map[string]int
	// Undefined lists numeric columns with no values to average. They are
	// left as they were.
	Undefined []string
}

// Total is the number of filled cells across all columns.
func (s FillSummary) Total() int {
	n := 0
	for _, c := range s.Filled {
		n += c
	}
	return n
}

// Deduplicate drops every row equal to an earlier one across all columns
// and reports how many rows were removed. Missing cells compare equal.
func Deduplicate(t *Table) (*Table, int) {
	seen := make(map[string]bool, t.rows)
	keep := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		key := t.rowKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, r)
	}

	out := t.Clone()
	if len(keep) == t.rows {
		return out, 0
	}
	for i := range out.columns {
		cells := make([]Cell, len(keep))
		for j, r := range keep {
			cells[j] = t.columns[i].Cells[r]
		}
		out.columns[i].Cells = cells
	}
	out.rows = len(keep)
	return out, t.rows - len(keep)
}

// rowKey encodes row r so that two rows share a key only when every cell
// is equal. Values are quoted, so a missing cell's bare 0 byte cannot
// collide with any value.
func (t *Table) rowKey(r int) string {
	var b strings.Builder
	for i := range t.columns {
		col := &t.columns[i]
		cell := col.Cells[r]
		switch {
		case cell.Missing:
			b.WriteByte(0)
		case col.Kind == KindNumeric && !col.Float && cell.Text != "":
			b.WriteString(strconv.Quote(cell.Text))
		case col.Kind == KindNumeric:
			v := cell.Num
			if v == 0 {
				v = 0 // -0 equals 0
			}
			b.WriteString(strconv.Quote(strconv.FormatFloat(v, 'g', -1, 64)))
		default:
			b.WriteString(strconv.Quote(cell.Text))
		}
	}
	return b.String()
}

// FillMissing replaces missing cells of numeric columns with the mean of
// the column's present values. Text columns are not touched, and a numeric
// column with no present values stays missing.
func FillMissing(t *Table) (*Table, FillSummary) {
	out := t.Clone()
	summary := FillSummary{Filled: make(map[string]int)}

	for i := range out.columns {
		col := &out.columns[i]
		if col.Kind != KindNumeric {
			continue
		}

		var sum float64
		var present, missing int
		for _, c := range col.Cells {
			if c.Missing {
				missing++
				continue
			}
			sum += c.Num
			present++
		}
		if missing == 0 {
			continue
		}
		if present == 0 {
			summary.Undefined = append(summary.Undefined, col.Name)
			continue
		}

		mean := sum / float64(present)
		for j := range col.Cells {
			if col.Cells[j].Missing {
				col.Cells[j] = NumberCell(mean)
			}
		}
		col.Float = true
		col.dropExact()
		summary.Filled[col.Name] = missing
	}
	return out, summary
}

// SelectColumns keeps the named columns in their table order. An empty
// selection is allowed and keeps the row count.
func SelectColumns(t *Table, names []string) (*Table, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := t.Column(n); !ok {
			return nil, apperr.NewInvalidInput(fmt.Sprintf("unknown column %q", n))
		}
		want[n] = true
	}

	cols := make([]Column, 0, len(want))
	for i := range t.columns {
		if want[t.columns[i].Name] {
			cols = append(cols, t.columns[i].clone())
		}
	}
	return &Table{columns: cols, rows: t.rows}, nil
}
