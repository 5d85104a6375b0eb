package normalization

import (
	"strconv"
	"strings"
)

// FixNumericArtifacts resolves rendering artifacts spreadsheets
// introduce on numeric cells: integral floats ("1234.0") lose the
// ".0", scientific notation ("9.8102e+14") is re-rendered fixed-point.
// Anything else passes through untouched.
func FixNumericArtifacts(s string) string {
	if isIntegralFloat(s) {
		return s[:len(s)-2]
	}
	if looksExponential(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return s
}

// Number cleans spreadsheet "Number"-style identifier cells. Values
// like "14-1414" stay text; a literal "none" collapses to empty.
func Number(s string) string {
	txt := strings.TrimSpace(s)
	if txt == "" || strings.EqualFold(txt, "none") {
		return ""
	}
	return FixNumericArtifacts(txt)
}

// Microchip normalizes a chip token to a bare digit string: separators
// removed, numeric-precision artifacts resolved. Returns "" unless the
// result is all digits with length >= 9.
func Microchip(s string) string {
	txt := Number(s)
	txt = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(txt)
	if len(txt) < 9 {
		return ""
	}
	for i := 0; i < len(txt); i++ {
		if txt[i] < '0' || txt[i] > '9' {
			return ""
		}
	}
	return txt
}

func isIntegralFloat(s string) bool {
	if !strings.HasSuffix(s, ".0") {
		return false
	}
	head := s[:len(s)-2]
	if head == "" {
		return false
	}
	for i := 0; i < len(head); i++ {
		if head[i] < '0' || head[i] > '9' {
			return false
		}
	}
	return true
}

func looksExponential(s string) bool {
	if !strings.ContainsAny(s, "eE") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
