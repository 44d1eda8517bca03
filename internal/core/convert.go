package core

// convert.go coerces raw cell text into the canonical scalar forms the
// attribute map allows. User-exported tabular data is messy:
//   - multiple date formats (US, EU, ISO) and 2-digit years
//   - thousands separators and currency symbols in numbers
//   - assorted missing-value markers (NA, N/A, null, ...)
// Coercion order matters: numbers are tried before dates so an 8-digit
// integer is not mistaken for a compact YYYYMMDD date.

import (
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted. Parsed years
// more than this many years in the future roll back a century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"2006-01-02T15:04:05", "2006-01-02 15:04:05",
		"20060102",
	}
)

// missing-value markers treated as null, lowercased.
var nullMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"-":    {},
}

// IsNullMarker reports whether a trimmed cell denotes a missing value.
func IsNullMarker(s string) bool {
	_, ok := nullMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseDate attempts locale-neutral date parsing over the supported
// layouts. The bool result is false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// RFC3339 covers native timestamp exports
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseNumber attempts numeric parsing after stripping thousands separators,
// currency symbols, and accounting-style negative parentheses.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if isNegative {
		f = -f
	}
	return f, true
}

// ParseBool accepts the literal boolean spellings commonly emitted by
// spreadsheet exports. 1/0 are deliberately excluded here so numeric
// columns are not misread as booleans.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	default:
		return false, false
	}
}

// CoerceCell converts one raw cell into its canonical scalar Value:
// null marker → null, numeric → number, boolean literal → bool,
// parseable date → ISO-8601 string, anything else → trimmed string.
func CoerceCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if IsNullMarker(s) {
		return NullValue()
	}
	if f, ok := ParseNumber(s); ok {
		return NumberValue(f)
	}
	if b, ok := ParseBool(s); ok {
		return BoolValue(b)
	}
	if t, ok := ParseDate(s); ok {
		return DateValue(t)
	}
	return StringValue(s)
}

// TrimmedOrNil returns a trimmed copy of s, or nil for blank/missing cells.
func TrimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || IsNullMarker(s) {
		return nil
	}
	return &s
}
