package epx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	numericMonthPattern = regexp.MustCompile(`^(\d{1,2})[./-](\d{4})$`)
	isoMonthPattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	textMonthPattern    = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{4})$`)
	nonNumericPattern   = regexp.MustCompile(`[^\d.\-]`)
)

// monthNames maps German and English month names and abbreviations, diacritics removed
var monthNames = map[string]int{
	"januar": 1, "jan": 1, "january": 1,
	"februar": 2, "feb": 2, "february": 2,
	"maerz": 3, "marz": 3, "mar": 3, "march": 3,
	"april": 4, "apr": 4,
	"mai": 5, "may": 5,
	"juni": 6, "jun": 6, "june": 6,
	"juli": 7, "jul": 7, "july": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"oktober": 10, "okt": 10, "october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"dezember": 12, "dez": 12, "december": 12, "dec": 12,
}

// stripDiacritics removes combining marks after compatibility decomposition (ä → a).
// A transformer is built per call because transform.Chain is not safe for concurrent use.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeHeader lowercases a column header and reduces it to letters, digits and single spaces
func NormalizeHeader(s string) string {
	s = stripDiacritics(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeMonth converts "3.2025", "03/2025", "2025-3", "März 2025", "Maerz 2025" or "Dec 2025" to "2025-03"
func NormalizeMonth(raw string) (string, bool) {
	cleaned := strings.Join(strings.Fields(stripDiacritics(raw)), " ")
	if cleaned == "" {
		return "", false
	}

	if m := numericMonthPattern.FindStringSubmatch(cleaned); m != nil {
		return formatMonth(m[2], m[1])
	}
	if m := isoMonthPattern.FindStringSubmatch(cleaned); m != nil {
		return formatMonth(m[1], m[2])
	}
	if m := textMonthPattern.FindStringSubmatch(strings.ToLower(cleaned)); m != nil {
		month, ok := monthNames[m[1]]
		if !ok {
			return "", false
		}
		return formatMonth(m[2], strconv.Itoa(month))
	}
	return "", false
}

func formatMonth(yearStr, monthStr string) (string, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", year, month), true
}

// ParseLocaleNumber reads a German formatted number: "1.234,5" → 1234.5.
// Dots are always treated as thousands separators.
func ParseLocaleNumber(raw string) (float64, bool) {
	s := strings.Join(strings.Fields(raw), "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	s = nonNumericPattern.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
