package importer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Table is a header row plus data rows; column order is irrelevant.
type Table struct {
	Header []string
	Rows   [][]string
}

var (
	trLower = cases.Lower(language.Turkish)
	trUpper = cases.Upper(language.Turkish)
)

// sameHeader compares header names case-insensitively, accepting both
// Unicode folding and Turkish dotted/dotless I rules.
func sameHeader(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return strings.EqualFold(a, b) || trLower.String(a) == trLower.String(b)
}

// column returns the index of the first header matching any synonym, in
// synonym order, or -1.
func (t Table) column(synonyms ...string) int {
	for _, s := range synonyms {
		for i, h := range t.Header {
			if strings.TrimSpace(h) != "" && sameHeader(h, s) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, col int) (string, bool) {
	if col < 0 {
		return "", false
	}
	if col >= len(row) {
		return "", true
	}
	return row[col], true
}
