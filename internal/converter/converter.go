package converter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nconklindev/datasweep/internal/apperr"
	"github.com/nconklindev/datasweep/internal/table"
	"github.com/nconklindev/datasweep/internal/types"

	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet every generated workbook carries.
const SheetName = "Sheet1"

const utf8BOM = "\ufeff"

// UnsupportedFormatError is returned for files that are neither CSV nor XLSX.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// DetectFormat picks the format from the file extension, ignoring case.
func DetectFormat(name string) (types.Format, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".csv":
		return types.FormatCSV, nil
	case ".xlsx":
		return types.FormatXLSX, nil
	default:
		return 0, apperr.NewUnsupportedFormat(&UnsupportedFormatError{Ext: ext})
	}
}

// Load parses an uploaded file into a table.
func Load(file types.UploadedFile) (*table.Table, types.Format, error) {
	format, err := DetectFormat(file.Name)
	if err != nil {
		return nil, 0, err
	}

	var t *table.Table
	switch format {
	case types.FormatCSV:
		t, err = readCSV(bytes.NewReader(file.Content))
	case types.FormatXLSX:
		t, err = readXLSX(bytes.NewReader(file.Content))
	}
	if err != nil {
		return nil, format, apperr.NewParseFailure(file.Name, err)
	}

	return t, format, nil
}

func readCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	return table.FromRecords(header, records[1:])
}

func readXLSX(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	// Data cells right of the last header get blank headers of their own.
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	header := make([]string, width)
	copy(header, rows[0])

	return table.FromRecords(header, rows[1:])
}

// OutputName swaps the extension of name for the target format's.
func OutputName(name string, target types.Format) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + target.Ext()
}

// Convert serializes t into the conversion's target format. No index
// column is written.
func Convert(t *table.Table, inputName string, c types.Conversion) (*types.OutputArtifact, *types.ConversionResult, error) {
	target := c.Target()

	var buf bytes.Buffer
	var err error
	switch target {
	case types.FormatXLSX:
		err = WriteXLSX(&buf, t)
	default:
		err = WriteCSV(&buf, t)
	}
	if err != nil {
		return nil, nil, apperr.NewInternal(err)
	}

	outputName := OutputName(inputName, target)
	artifact := &types.OutputArtifact{
		FileName:    outputName,
		Data:        bytes.NewReader(buf.Bytes()),
		ContentType: target.ContentType(),
	}

	return artifact, &types.ConversionResult{
		InputFile:   inputName,
		OutputFile:  outputName,
		Columns:     t.Names(),
		RowsWritten: t.Rows(),
	}, nil
}

// WriteCSV writes t as comma separated text with a header row. A lone
// empty field is written as "" so that the row survives a reread.
func WriteCSV(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)
	for _, record := range t.Records() {
		if len(record) == 1 && record[0] == "" {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes t as a single sheet workbook with a header row. Numeric
// cells are stored as numbers; missing cells are left blank.
func WriteXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if t.Width() > 0 {
		header := make([]interface{}, t.Width())
		for i, name := range t.Names() {
			header[i] = name
		}
		if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
			return err
		}

		cols := t.Columns()
		for r := 0; r < t.Rows(); r++ {
			row := make([]interface{}, len(cols))
			for i := range cols {
				row[i] = cellValue(&cols[i], r)
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

func cellValue(c *table.Column, r int) interface{} {
	cell := c.Cells[r]
	switch {
	case cell.Missing:
		return nil
	case c.Kind == table.KindNumeric && !c.Float:
		if v, err := strconv.ParseInt(cell.Text, 10, 64); err == nil {
			return v
		}
		if v, err := strconv.ParseUint(cell.Text, 10, 64); err == nil {
			return v
		}
		return cell.Num
	case c.Kind == table.KindNumeric:
		return cell.Num
	default:
		return cell.Text
	}
}

// Save writes the artifact into dir and returns the written path. The
// artifact's reader is rewound afterwards.
func Save(dir string, a *types.OutputArtifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(a.FileName))
	outFile, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer outFile.Close()

	if _, err := a.Data.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if _, err := io.Copy(outFile, a.Data); err != nil {
		return "", err
	}
	if _, err := a.Data.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return path, outFile.Close()
}
