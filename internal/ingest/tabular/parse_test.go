package tabular

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

func TestParseCSV(t *testing.T) {
	data := []byte("Date , Microchip Number,,Owner Email\n" +
		"3/1/2024,981020012345678,x,jane@example.com\n" +
		",,,\n" +
		"3/2/2024,981020012345679\n" +
		"3/3/2024,981020012345680,y,bob@example.com,EXTRA\n")

	res, err := Parse("visits.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3 (blank row dropped)", len(res.Rows))
	}

	first := res.Rows[0]
	if got := first.Get("Date"); got != "3/1/2024" {
		t.Errorf("trimmed header lookup failed: %q", got)
	}
	if got := first.Get("column_3"); got != "x" {
		t.Errorf("placeholder header: got %q, want x", got)
	}

	// Short row padded with empties.
	if got := res.Rows[1].Get("Owner Email"); got != "" {
		t.Errorf("padded cell should be empty, got %q", got)
	}

	// Long row truncated, with a warning.
	if len(res.Warnings) == 0 {
		t.Errorf("expected a truncation warning")
	}
	if got := res.Rows[2].Get("Owner Email"); got != "bob@example.com" {
		t.Errorf("truncated row lost a kept column: %q", got)
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	res, err := Parse("empty.csv", []byte("Date,Microchip Number\n"))
	if err != nil {
		t.Fatalf("header-only file must be valid-but-empty, got %v", err)
	}
	if len(res.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(res.Rows))
	}
}

func TestParseCSVEmptyFile(t *testing.T) {
	if _, err := Parse("empty.csv", nil); err == nil {
		t.Fatal("zero-byte file should be an error")
	}
}

func TestParseCSVUTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte("Date,Owner First Name\n3/1/2024,Søren\n"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	res, err := Parse("export.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].Get("Owner First Name") != "Søren" {
		t.Fatalf("utf-16 content mangled: %+v", res.Rows)
	}
}

func TestParseCellCoercion(t *testing.T) {
	data := []byte("Microchip Number,Number,Note\n" +
		"9.81020012345678E+14,1234.0,got 2.0 ml\n")
	res, err := Parse("cats.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	row := res.Rows[0]
	if got := row.Get("Microchip Number"); got != "981020012345678" {
		t.Errorf("exponent cell: got %q", got)
	}
	if got := row.Get("Number"); got != "1234" {
		t.Errorf("integral float cell: got %q", got)
	}
	if got := row.Get("Note"); got != "got 2.0 ml" {
		t.Errorf("prose cell must pass through, got %q", got)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := map[string]interface{}{
		"A1": "Date", "B1": "Microchip Number", "C1": "Animal Name",
		"A2": "3/1/2024", "B2": "981020012345678", "C2": "Mittens",
		"A3": "", "B3": "", "C3": "",
		"A4": "3/2/2024", "B4": "981020012345679", "C4": "Patch",
	}
	for axis, v := range cells {
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			t.Fatalf("SetCellValue(%s): %v", axis, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	res, err := Parse("visits.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (blank dropped)", len(res.Rows))
	}
	if got := res.Rows[1].Get("Animal Name"); got != "Patch" {
		t.Errorf("row order lost: %q", got)
	}

	// Same bytes without the telltale extension parse via content sniff.
	sniffed, err := Parse("upload.bin", buf.Bytes())
	if err != nil {
		t.Fatalf("sniffed Parse: %v", err)
	}
	if len(sniffed.Rows) != 2 {
		t.Fatalf("sniffed: got %d rows, want 2", len(sniffed.Rows))
	}
}

func TestRowFirst(t *testing.T) {
	row := Row{"Owner Cell Phone": " ", "Owner Phone": "503-555-1234", "Phone": "x"}
	if got := row.First("Owner Cell Phone", "Owner Phone", "Phone"); got != "503-555-1234" {
		t.Fatalf("First skipped blanks wrong: %q", got)
	}
	if got := row.First("Missing", "Also Missing"); got != "" {
		t.Fatalf("First on absent keys: %q", got)
	}
	if !strings.Contains(row.First("Owner Phone"), "555") {
		t.Fatal("sanity")
	}
}
