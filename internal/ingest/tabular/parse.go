package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/feralops/tnr-backend/internal/normalization"
)

// Result carries the normalized rows of one file plus any non-fatal
// parse warnings (padded rows, skipped malformed lines).
type Result struct {
	Rows     []Row
	Warnings []string
}

var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// Parse normalizes one uploaded export into an ordered row sequence.
// The format is picked from the file extension, falling back to a
// content sniff (XLSX files are zip containers). A file with headers
// but zero data rows is a valid empty result, not an error.
func Parse(name string, data []byte) (*Result, error) {
	ext := strings.ToLower(strings.TrimPrefix(extOf(name), "."))
	switch ext {
	case "xlsx", "xlsm":
		return parseXLSX(data)
	case "csv", "txt", "tsv":
		return parseCSV(data, ext)
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return parseXLSX(data)
	}
	return parseCSV(data, "csv")
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func parseXLSX(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return nil, errors.New("sheet has no header row")
	}

	headers := normalizeHeaders(raw[0])
	res := &Result{}
	for i, cells := range raw[1:] {
		row, warn := buildRow(headers, cells, i+2)
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
		if row == nil || row.Empty() {
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func parseCSV(data []byte, ext string) (*Result, error) {
	decoded, err := decodeToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("decode file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if ext == "tsv" {
		reader.Comma = '\t'
	}

	headerCells, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file: no header row")
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}
	headers := normalizeHeaders(headerCells)

	res := &Result{}
	line := 1
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v (skipped)", line, err))
			continue
		}
		row, warn := buildRow(headers, cells, line)
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
		if row == nil || row.Empty() {
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// decodeToUTF8 sniffs BOMs and falls back to Latin-1 when the bytes are
// not valid UTF-8. ClinicHQ exports have shipped in all three.
func decodeToUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte{0xff, 0xfe}) || bytes.HasPrefix(data, []byte{0xfe, 0xff}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return dec.Bytes(data)
	}
	if bytes.HasPrefix(data, []byte{0xef, 0xbb, 0xbf}) {
		return data[3:], nil
	}
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(data)
}

// normalizeHeaders trims header cells and assigns positional
// placeholders to blanks so every column stays addressable.
func normalizeHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, h := range cells {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = h
	}
	return headers
}

// buildRow zips cells with headers, padding short rows and truncating
// long ones, and coerces each cell.
func buildRow(headers, cells []string, line int) (Row, string) {
	warn := ""
	switch {
	case len(cells) < len(headers):
		padded := make([]string, len(headers))
		copy(padded, cells)
		cells = padded
	case len(cells) > len(headers):
		warn = fmt.Sprintf("line %d: %d extra columns truncated", line, len(cells)-len(headers))
		cells = cells[:len(headers)]
	}
	row := make(Row, len(headers))
	for i, h := range headers {
		row[h] = coerceCell(cells[i])
	}
	return row, warn
}

// coerceCell trims a cell and resolves numeric rendering artifacts
// (scientific notation, integral floats) that spreadsheets introduce
// on identifier-like columns.
func coerceCell(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}
	return normalization.FixNumericArtifacts(v)
}
