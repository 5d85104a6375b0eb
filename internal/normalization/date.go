package normalization

import (
	"strings"
	"time"
)

// Layout candidates for export date cells, tried in order. US forms
// before day-first forms; datetime-suffixed variants cover exports
// that carry a time component.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04PM",
	"1/2/2006 15:04",
	"2006/1/2",
	"2-1-2006",
}

// Date parses a spreadsheet date cell to ISO form ("2006-01-02").
// Returns ("", false) when no candidate layout matches.
func Date(s string) (string, bool) {
	txt := strings.TrimSpace(s)
	if txt == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, txt); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
