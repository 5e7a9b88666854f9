package converter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nconklindev/datasweep/internal/apperr"
	"github.com/nconklindev/datasweep/internal/table"
	"github.com/nconklindev/datasweep/internal/types"

	"github.com/xuri/excelize/v2"
)

func csvFile(name, content string) types.UploadedFile {
	return types.UploadedFile{Name: name, Size: int64(len(content)), Content: []byte(content)}
}

func xlsxFile(t *testing.T, name string, rows [][]interface{}) types.UploadedFile {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return types.UploadedFile{Name: name, Size: int64(buf.Len()), Content: buf.Bytes()}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected types.Format
		wantErr  bool
		wantExt  string
	}{
		{"CSV", "data.csv", types.FormatCSV, false, ""},
		{"Upper case CSV", "DATA.CSV", types.FormatCSV, false, ""},
		{"XLSX", "report.xlsx", types.FormatXLSX, false, ""},
		{"Mixed case XLSX", "report.XlSx", types.FormatXLSX, false, ""},
		{"Text", "data.txt", 0, true, ".txt"},
		{"Legacy Excel", "old.xls", 0, true, ".xls"},
		{"No extension", "README", 0, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("DetectFormat(%q) error: %v", tt.input, err)
				}
				if got != tt.expected {
					t.Errorf("DetectFormat(%q) = %v; want %v", tt.input, got, tt.expected)
				}
				return
			}

			var ufe *UnsupportedFormatError
			if !errors.As(err, &ufe) {
				t.Fatalf("DetectFormat(%q) error = %v; want UnsupportedFormatError", tt.input, err)
			}
			if ufe.Ext != tt.wantExt {
				t.Errorf("Ext = %q; want %q", ufe.Ext, tt.wantExt)
			}
			if apperr.CodeOf(err) != apperr.CodeUnsupportedFormat {
				t.Errorf("code = %v; want UNSUPPORTED_FORMAT", apperr.CodeOf(err))
			}
		})
	}
}

func TestLoadUnsupportedProducesNoTable(t *testing.T) {
	tbl, _, err := Load(csvFile("data.txt", "a,b\n1,2\n"))
	if tbl != nil {
		t.Error("expected no table")
	}

	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) || ufe.Ext != ".txt" {
		t.Fatalf("Load() error = %v; want unsupported .txt", err)
	}
	if err.Error() != "unsupported file type: .txt" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestLoadCSV(t *testing.T) {
	tbl, format, err := Load(csvFile("people.csv", "\ufeffname,age\nAlice,30\nBob,\nAlice,30\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if format != types.FormatCSV {
		t.Errorf("format = %v; want CSV", format)
	}
	if !reflect.DeepEqual(tbl.Names(), []string{"name", "age"}) {
		t.Errorf("Names() = %v; BOM should be stripped", tbl.Names())
	}
	if tbl.Rows() != 3 {
		t.Errorf("Rows() = %d; want 3", tbl.Rows())
	}
	age, _ := tbl.Column("age")
	if age.Kind != table.KindNumeric {
		t.Errorf("age kind = %v; want numeric", age.Kind)
	}
}

func TestLoadCSVParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Empty file", ""},
		{"Bare quote", "a,b\n\"x,1\n"},
		{"Row wider than header", "a,b\n1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(csvFile("bad.csv", tt.content))
			if err == nil {
				t.Fatal("expected parse failure")
			}
			if apperr.CodeOf(err) != apperr.CodeParseFailure {
				t.Errorf("code = %v; want PARSE_FAILURE (%v)", apperr.CodeOf(err), err)
			}
		})
	}
}

func TestLoadXLSX(t *testing.T) {
	file := xlsxFile(t, "scores.xlsx", [][]interface{}{
		{"name", "score", "ratio"},
		{"Alice", 10, 0.5},
		{"Bob", nil, 0.25},
	})

	tbl, format, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if format != types.FormatXLSX {
		t.Errorf("format = %v; want Excel", format)
	}

	expected := [][]string{
		{"name", "score", "ratio"},
		{"Alice", "10.0", "0.5"},
		{"Bob", "", "0.25"},
	}
	if got := tbl.Records(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Records() = %v; want %v", got, expected)
	}
}

func TestLoadXLSXCorrupt(t *testing.T) {
	_, _, err := Load(csvFile("broken.xlsx", "not a zip"))
	if apperr.CodeOf(err) != apperr.CodeParseFailure {
		t.Errorf("Load() error = %v; want parse failure", err)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input    string
		target   types.Format
		expected string
	}{
		{"report.csv", types.FormatXLSX, "report.xlsx"},
		{"report.xlsx", types.FormatCSV, "report.csv"},
		{"REPORT.CSV", types.FormatXLSX, "REPORT.xlsx"},
		{"my.data.csv", types.FormatXLSX, "my.data.xlsx"},
		{"report.csv", types.FormatCSV, "report.csv"},
	}

	for _, tt := range tests {
		if got := OutputName(tt.input, tt.target); got != tt.expected {
			t.Errorf("OutputName(%q, %v) = %q; want %q", tt.input, tt.target, got, tt.expected)
		}
	}
}

func TestConvertCSVToExcel(t *testing.T) {
	tbl, _, err := Load(csvFile("report.csv", "name,age\nAlice,30\n"))
	if err != nil {
		t.Fatal(err)
	}

	artifact, result, err := Convert(tbl, "report.csv", types.CSVToExcel)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if artifact.FileName != "report.xlsx" {
		t.Errorf("FileName = %q; want report.xlsx", artifact.FileName)
	}
	if artifact.ContentType != types.ContentTypeXLSX {
		t.Errorf("ContentType = %q", artifact.ContentType)
	}
	if result.OutputFile != "report.xlsx" || result.RowsWritten != 1 {
		t.Errorf("result = %+v", result)
	}

	f, err := excelize.OpenReader(artifact.Data)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetName}) {
		t.Errorf("sheets = %v; want [%s]", got, SheetName)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows, [][]string{{"name", "age"}, {"Alice", "30"}}) {
		t.Errorf("rows = %v", rows)
	}
}

func TestConvertExcelToCSV(t *testing.T) {
	tbl, _, err := Load(xlsxFile(t, "report.xlsx", [][]interface{}{
		{"name", "age"},
		{"Alice", 30},
		{"Bob", nil},
	}))
	if err != nil {
		t.Fatal(err)
	}

	artifact, _, err := Convert(tbl, "report.xlsx", types.ExcelToCSV)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if artifact.FileName != "report.csv" || artifact.ContentType != "text/csv" {
		t.Errorf("artifact = %q %q", artifact.FileName, artifact.ContentType)
	}

	data, _ := io.ReadAll(artifact.Data)
	if got := string(data); got != "name,age\nAlice,30.0\nBob,\n" {
		t.Errorf("csv = %q", got)
	}
}

func TestRoundTripCSVExcelCSV(t *testing.T) {
	input := "city,pop,rate,note\nOslo,700000,1.25,\"a, b\"\nBergen,285000,,x\n"
	original, _, err := Load(csvFile("cities.csv", input))
	if err != nil {
		t.Fatal(err)
	}

	xlsx, _, err := Convert(original, "cities.csv", types.CSVToExcel)
	if err != nil {
		t.Fatal(err)
	}
	xlsxBytes, _ := io.ReadAll(xlsx.Data)

	reloaded, _, err := Load(types.UploadedFile{Name: xlsx.FileName, Content: xlsxBytes})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if !reflect.DeepEqual(reloaded.Records(), original.Records()) {
		t.Errorf("round trip changed records:\n got %v\nwant %v", reloaded.Records(), original.Records())
	}

	back, _, err := Convert(reloaded, xlsx.FileName, types.ExcelToCSV)
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(back.Data).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(records, original.Records()) {
		t.Errorf("csv = %v; want %v", records, original.Records())
	}
}

func TestRoundTripKeepsLargeIntegers(t *testing.T) {
	input := "id,n\n9007199254740993,1\n9999999999999999999,2\n-9223372036854775808,3\n"
	original, _, err := Load(csvFile("ids.csv", input))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, original); err != nil {
		t.Fatal(err)
	}
	if buf.String() != input {
		t.Errorf("WriteCSV = %q; want %q", buf.String(), input)
	}

	xlsx, _, err := Convert(original, "ids.csv", types.CSVToExcel)
	if err != nil {
		t.Fatal(err)
	}
	xlsxBytes, _ := io.ReadAll(xlsx.Data)
	reloaded, _, err := Load(types.UploadedFile{Name: xlsx.FileName, Content: xlsxBytes})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	back, _, err := Convert(reloaded, xlsx.FileName, types.ExcelToCSV)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(back.Data)
	if string(data) != input {
		t.Errorf("round trip = %q; want %q", data, input)
	}
}

func TestSingleColumnMissingSurvivesReread(t *testing.T) {
	tbl, _, err := Load(csvFile("v.csv", "v\n1\nNA\n3\n"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "v\n1.0\n\"\"\n3.0\n" {
		t.Errorf("WriteCSV = %q", got)
	}

	reloaded, _, err := Load(csvFile("v.csv", buf.String()))
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Rows() != 3 {
		t.Fatalf("Rows() = %d; want 3", reloaded.Rows())
	}
	if col, _ := reloaded.Column("v"); !col.Cells[1].Missing {
		t.Error("expected the middle cell to stay missing")
	}
}

func TestConvertZeroColumns(t *testing.T) {
	tbl, _, err := Load(csvFile("report.csv", "a,b\n1,2\n3,4\n"))
	if err != nil {
		t.Fatal(err)
	}
	empty, err := table.SelectColumns(tbl, nil)
	if err != nil {
		t.Fatal(err)
	}

	artifact, result, err := Convert(empty, "report.csv", types.ExcelToCSV)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	data, _ := io.ReadAll(artifact.Data)
	if got := string(data); got != "\n\n\n" {
		t.Errorf("csv = %q; want header line plus two blank rows", got)
	}
	if result.RowsWritten != 2 || len(result.Columns) != 0 {
		t.Errorf("result = %+v", result)
	}

	if _, _, err := Convert(empty, "report.csv", types.CSVToExcel); err != nil {
		t.Errorf("Convert to Excel: %v", err)
	}
}

func TestSave(t *testing.T) {
	tbl, _, err := Load(csvFile("report.csv", "a\n1\n"))
	if err != nil {
		t.Fatal(err)
	}
	artifact, _, err := Convert(tbl, "report.csv", types.ExcelToCSV)
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	path, err := Save(dir, artifact)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if path != filepath.Join(dir, "report.csv") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\n1\n" {
		t.Errorf("saved %q", data)
	}

	// The artifact stays readable from the start.
	again, _ := io.ReadAll(artifact.Data)
	if string(again) != "a\n1\n" {
		t.Errorf("artifact not rewound: %q", again)
	}
}
