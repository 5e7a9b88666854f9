// Package table holds the in-memory tabular model shared by the loader,
// the cleaning transforms, the chart and the converter.
//
// A Table is treated as a value: every transform returns a new Table and
// leaves its input untouched.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Cell is a single value, read according to the owning column's Kind
// unless Missing is set. Text columns use Text. Numeric columns use Num;
// in integer columns Text also holds the exact decimal value, which Num
// cannot represent beyond 2^53.
type Cell struct {
	Text    string
	Num     float64
	Missing bool
}

func MissingCell() Cell { return Cell{Missing: true} }
func NumberCell(v float64) Cell { return Cell{Num: v} }
func TextCell(s string) Cell { return Cell{Text: s} }

// IntCell holds an integer that fits int64 or uint64, kept exact.
func IntCell(s string) (Cell, bool) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Cell{Text: strconv.FormatInt(v, 10), Num: float64(v)}, true
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Cell{Text: strconv.FormatUint(v, 10), Num: float64(v)}, true
	}
	return Cell{}, false
}

type Column struct {
	Name string
	Kind Kind
	// Float marks numeric columns rendered with a decimal point, which is
	// the case once a column has held a missing or non-integral value.
	Float bool
	Cells []Cell
}

// Format renders cell i the way it is written to CSV and shown in previews.
func (c *Column) Format(i int) string {
	cell := c.Cells[i]
	if cell.Missing {
		return ""
	}
	if c.Kind == KindNumeric {
		if !c.Float && cell.Text != "" {
			return cell.Text
		}
		return FormatNumber(cell.Num, c.Float)
	}
	return cell.Text
}

// dropExact forgets the exact integer text of numeric cells once the
// column is rendered as float.
func (c *Column) dropExact() {
	for i := range c.Cells {
		c.Cells[i].Text = ""
	}
}

func (c *Column) clone() Column {
	out := *c
	out.Cells = make([]Cell, len(c.Cells))
	copy(out.Cells, c.Cells)
	return out
}

// FormatNumber renders v; float columns always carry a fractional part.
func FormatNumber(v float64, float bool) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if float && !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Table is an ordered set of equally long, uniquely named columns.
type Table struct {
	columns []Column
	rows    int
}

// New builds a table from columns, checking that names are unique and
// lengths agree.
func New(columns ...Column) (*Table, error) {
	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0].Cells)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Cells) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Cells), rows)
		}
	}
	return &Table{columns: columns, rows: rows}, nil
}

func (t *Table) Rows() int { return t.rows }
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the table's columns. Callers must not modify them.
func (t *Table) Columns() []Column { return t.columns }

func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.columns {
		if t.columns[i].Name == name {
			return &t.columns[i], true
		}
	}
	return nil, false
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []Column {
	var out []Column
	for _, c := range t.columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.columns))
	for i := range t.columns {
		cols[i] = t.columns[i].clone()
	}
	return &Table{columns: cols, rows: t.rows}
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.rows {
		n = t.rows
	}
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c
		cols[i].Cells = append([]Cell(nil), c.Cells[:n]...)
	}
	return &Table{columns: cols, rows: n}
}

// Records renders the table as a header row followed by one record per
// row, the shape encoding/csv writes.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, t.rows+1)
	records = append(records, t.Names())
	for r := 0; r < t.rows; r++ {
		record := make([]string, len(t.columns))
		for i := range t.columns {
			record[i] = t.columns[i].Format(r)
		}
		records = append(records, record)
	}
	return records
}

// FromRecords builds a table from a header and raw string records,
// inferring each column's kind. Short records are padded with missing
// cells; long records are rejected.
func FromRecords(header []string, records [][]string) (*Table, error) {
	names := normalizeHeader(header)
	raw := make([][]string, len(names))
	for i := range raw {
		raw[i] = make([]string, len(records))
	}
	for r, record := range records {
		if len(record) > len(names) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", r+2, len(names), len(record))
		}
		for i, v := range record {
			raw[i][r] = v
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = inferColumn(name, raw[i])
	}
	return &Table{columns: cols, rows: len(records)}, nil
}

// missingTokens are the raw values read as missing.
var missingTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"-NaN": true, "-nan": true, "null": true, "NULL": true, "None": true,
	"#N/A": true, "#N/A N/A": true, "#NA": true, "<NA>": true,
	"1.#IND": true, "1.#QNAN": true, "-1.#IND": true, "-1.#QNAN": true,
}

// IsMissing reports whether a raw value denotes a missing cell.
func IsMissing(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// ParseNumber parses s as a finite decimal number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func inferColumn(name string, values []string) Column {
	// A column with no rows has nothing to infer from.
	if len(values) == 0 {
		return Column{Name: name, Kind: KindText, Cells: []Cell{}}
	}

	col := Column{Name: name, Kind: KindNumeric, Cells: make([]Cell, len(values))}

	for i, v := range values {
		if IsMissing(v) {
			col.Cells[i] = MissingCell()
			col.Float = true
			continue
		}
		num, ok := ParseNumber(v)
		if !ok {
			col.Kind = KindText
			col.Float = false
			break
		}
		if num != math.Trunc(num) || strings.ContainsAny(v, ".eE") {
			col.Float = true
			col.Cells[i] = NumberCell(num)
			continue
		}
		cell, exact := IntCell(strings.TrimSpace(v))
		if !exact {
			col.Float = true
			cell = NumberCell(num)
		}
		col.Cells[i] = cell
	}

	switch {
	case col.Kind == KindText:
		for i, v := range values {
			if IsMissing(v) {
				col.Cells[i] = MissingCell()
			} else {
				col.Cells[i] = TextCell(v)
			}
		}
	case col.Float:
		col.dropExact()
	}
	return col
}

// normalizeHeader names blank headers "Unnamed: i" and suffixes repeated
// names with ".1", ".2", ... so that every column name is unique.
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))

	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		used[name] = true
		names[i] = name
	}
	return names
}
