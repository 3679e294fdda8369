package importer

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseQuantity reads an integer, 0 when the text is not one.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ParseTime accepts HH:mm and H:mm; anything else is midnight.
func ParseTime(s string) time.Duration {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0
	}
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	if hh > 23 || mm > 59 {
		return 0
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone keeps digits only, prefixes a 0 when missing and caps the
// result at 11 digits. Text without digits yields "".
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if d == "" {
		return ""
	}
	if d[0] != '0' {
		d = "0" + d
	}
	if len(d) > 11 {
		d = d[:11]
	}
	return d
}

var hospitalPhrases = []string{"Eğitim ve Araştırma Hastanesi", "Egitim ve Arastirma Hastanesi"}

// NormalizeHospital abbreviates "Eğitim ve Araştırma Hastanesi" to EAH.
func NormalizeHospital(s string) string {
	text := strings.TrimSpace(s)
	if text == "" {
		return ""
	}
	lower := trLower.String(text)
	if !(strings.Contains(lower, "eğitim") || strings.Contains(lower, "egitim")) ||
		!(strings.Contains(lower, "araştırma") || strings.Contains(lower, "arastirma")) ||
		!strings.Contains(lower, "hast") {
		return text
	}
	for _, p := range hospitalPhrases {
		text = replaceFold(text, p, "EAH")
	}
	return text
}

// replaceFold replaces every case-insensitive occurrence of old in s.
func replaceFold(s, old, repl string) string {
	src, pat := []rune(s), []rune(old)
	want := trLower.String(old)
	var b strings.Builder
	for i := 0; i < len(src); {
		if i+len(pat) <= len(src) {
			chunk := string(src[i : i+len(pat)])
			if trLower.String(chunk) == want || strings.EqualFold(chunk, old) {
				b.WriteString(repl)
				i += len(pat)
				continue
			}
		}
		b.WriteRune(src[i])
		i++
	}
	return b.String()
}
