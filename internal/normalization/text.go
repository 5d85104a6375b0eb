package normalization

import "strings"

// CollapseWhitespace trims and squeezes runs of whitespace to single
// spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Email lowercases and trims an email address. No validation beyond
// that; garbage in stays garbage, just canonical garbage.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a person-name part and squeezes interior whitespace,
// preserving case for display.
func Name(s string) string {
	return CollapseWhitespace(s)
}

// FoldKey lowercases and whitespace-collapses a string for use as a
// cache or dedup key.
func FoldKey(s string) string {
	return strings.ToLower(CollapseWhitespace(s))
}
