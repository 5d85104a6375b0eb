package normalization

import "strings"

// Phone reduces a phone number to bare digits, dropping the leading
// country "1" from 11-digit NANP forms. Anything shorter than 7 digits
// is treated as noise and comes back empty.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) < 7 {
		return ""
	}
	return digits
}
