package types

import (
	"bytes"
	"strings"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Format is a tabular file format the loader and converter understand.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatXLSX:
		return "Excel"
	default:
		return "unknown"
	}
}

// Ext returns the lowercase file extension, including the dot.
func (f Format) Ext() string {
	if f == FormatXLSX {
		return ".xlsx"
	}
	return ".csv"
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Conversion is the user-selected conversion direction.
type Conversion int

const (
	CSVToExcel Conversion = iota
	ExcelToCSV
)

// Conversions lists the choices in the order they are offered to the user.
var Conversions = []Conversion{CSVToExcel, ExcelToCSV}

func (c Conversion) String() string {
	if c == ExcelToCSV {
		return "Excel to CSV"
	}
	return "CSV to Excel"
}

func (c Conversion) Source() Format {
	if c == ExcelToCSV {
		return FormatXLSX
	}
	return FormatCSV
}

func (c Conversion) Target() Format {
	if c == ExcelToCSV {
		return FormatCSV
	}
	return FormatXLSX
}

// ParseConversion accepts the display label ("CSV to Excel") or the target
// format name ("excel", "xlsx", "csv").
func ParseConversion(s string) (Conversion, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv to excel", "excel", "xlsx":
		return CSVToExcel, true
	case "excel to csv", "csv":
		return ExcelToCSV, true
	default:
		return 0, false
	}
}

// UploadedFile is a file as handed over by the upload boundary.
type UploadedFile struct {
	Name    string
	Size    int64
	Content []byte
}

// SizeKB is the file size in kilobytes, as shown to the user.
func (u UploadedFile) SizeKB() float64 {
	return float64(u.Size) / 1024
}

// OutputArtifact is a converted file ready for the download boundary.
// Data is positioned at its start.
type OutputArtifact struct {
	FileName    string
	Data        *bytes.Reader
	ContentType string
}

type ConversionResult struct {
	InputFile   string
	OutputFile  string
	Columns     []string
	RowsWritten int
}
