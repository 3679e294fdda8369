package importer

import (
	"strings"
	"time"
)

// Labels is what a free-text description yields.
type Labels struct {
	Serial string
	Lot    string
	Expiry *time.Time
}

var expiryLayouts = []string{"02.01.2006", "2.1.2006"}

// ParseDescription splits on \ / newline ; and attributes each segment by
// its SERİ, LOT or SKT/EXP prefix. Later segments win.
func ParseDescription(desc string) Labels {
	var out Labels
	segments := strings.FieldsFunc(desc, func(r rune) bool {
		return r == '\\' || r == '/' || r == '\n' || r == ';'
	})
	for _, seg := range segments {
		text := strings.TrimSpace(seg)
		if text == "" {
			continue
		}
		head := trUpper.String(text)
		switch {
		case strings.HasPrefix(head, "SERİ") || strings.HasPrefix(head, "SERI"):
			out.Serial = segmentValue(text)
		case strings.HasPrefix(head, "LOT"):
			out.Lot = segmentValue(text)
		case strings.HasPrefix(head, "SKT") || strings.HasPrefix(head, "EXP"):
			if d, ok := parseExpiry(segmentValue(text)); ok {
				out.Expiry = &d
			}
		}
	}
	return out
}

// segmentValue takes the text after the first ':' (else '='), or the whole
// segment when neither separator has a value after it.
func segmentValue(text string) string {
	for _, sep := range []string{":", "="} {
		if i := strings.Index(text, sep); i >= 0 && i+1 < len(text) {
			return strings.TrimSpace(text[i+1:])
		}
	}
	return strings.TrimSpace(text)
}

func parseExpiry(s string) (time.Time, bool) {
	for _, layout := range expiryLayouts {
		if d, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
