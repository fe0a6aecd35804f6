// Package format holds the loss-tolerant field conversions used to build
// output rows. None of these functions fail: bad input yields an empty or
// placeholder string.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/dtnitsch/funnelx/pkg/payload"
)

// TimestampLayout is the output layout for First Started / Last Updated.
const TimestampLayout = "2006-01-02 15:04:05"

var feetTokens = map[string]string{
	"feet_three": "3",
	"feet_four":  "4",
	"feet_five":  "5",
	"feet_six":   "6",
	"feet_seven": "7",
}

var inchesTokens = map[string]string{
	"inches_zero":   "0",
	"inches_one":    "1",
	"inches_two":    "2",
	"inches_three":  "3",
	"inches_four":   "4",
	"inches_five":   "5",
	"inches_six":    "6",
	"inches_seven":  "7",
	"inches_eight":  "8",
	"inches_nine":   "9",
	"inches_ten":    "10",
	"inches_eleven": "11",
}

var months = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

// SafeString renders any payload value as a cell.
// Absent, null and empty strings become "". Objects and arrays become
// compact JSON so structured survey answers are kept intact.
func SafeString(v payload.Value) string {
	switch v.Kind {
	case payload.KindString:
		return v.Str
	case payload.KindNumber:
		return formatNumber(v.Num.String())
	case payload.KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case payload.KindObject, payload.KindArray:
		return v.JSON()
	default:
		return ""
	}
}

// formatNumber returns the JSON number literal as sent. Exponent forms are
// expanded to plain decimal by shifting the point, so no digit is lost.
func formatNumber(s string) string {
	e := strings.IndexAny(s, "eE")
	if e < 0 {
		return s
	}
	exp, err := strconv.Atoi(s[e+1:])
	if err != nil {
		return s
	}

	mant, sign := s[:e], ""
	if strings.HasPrefix(mant, "-") {
		sign, mant = "-", mant[1:]
	}
	intPart, fracPart, _ := strings.Cut(mant, ".")
	digits := intPart + fracPart
	point := len(intPart) + exp

	var out string
	switch {
	case point <= 0:
		out = "0." + strings.Repeat("0", -point) + digits
	case point >= len(digits):
		out = digits + strings.Repeat("0", point-len(digits))
	default:
		out = digits[:point] + "." + digits[point:]
	}

	out = strings.TrimLeft(out, "0")
	if out == "" || out[0] == '.' {
		out = "0" + out
	}
	return sign + out
}

// Height converts the categorical feet/inches tokens to F'I''.
// Either token missing yields ""; an unknown token maps to "0".
func Height(feet, inches payload.Value) string {
	f := strings.ToLower(strings.TrimSpace(SafeString(feet)))
	i := strings.ToLower(strings.TrimSpace(SafeString(inches)))
	if f == "" || i == "" {
		return ""
	}

	ft, ok := feetTokens[f]
	if !ok {
		ft = "0"
	}
	in, ok := inchesTokens[i]
	if !ok {
		in = "0"
	}
	return ft + "'" + in + "''"
}

// DateOfBirth combines day, month and year into MM/DD/YYYY.
// Months may be abbreviations, full names or numbers. Any missing or
// unrecognized component yields "" so no partial date is ever written.
func DateOfBirth(day, month, year payload.Value) string {
	d := strings.TrimSpace(SafeString(day))
	m := strings.TrimSpace(SafeString(month))
	y := strings.TrimSpace(SafeString(year))
	if d == "" || m == "" || y == "" {
		return ""
	}

	mm := monthNumber(m)
	if mm == "" {
		return ""
	}
	if len(d) < 2 {
		d = "0" + d
	}
	return mm + "/" + d + "/" + y
}

func monthNumber(m string) string {
	if n, err := strconv.Atoi(m); err == nil {
		if n < 1 || n > 12 {
			return ""
		}
		return twoDigits(n)
	}
	lower := strings.ToLower(m)
	if len(lower) < 3 {
		return ""
	}
	return months[lower[:3]]
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// State upper-cases a state code.
func State(v payload.Value) string {
	return strings.ToUpper(strings.TrimSpace(SafeString(v)))
}

// DisqualifiedReasons extracts reasonsList from the disqualified_reasons
// field, which may be a JSON-encoded string or an already decoded object.
// Anything else falls back to the raw rendering of the value.
func DisqualifiedReasons(v payload.Value) string {
	if v.IsEmpty() {
		return ""
	}

	parsed := v
	if v.Kind == payload.KindString {
		p, err := payload.Parse([]byte(v.Str))
		if err != nil {
			return SafeString(v)
		}
		parsed = p
	}

	if parsed.Kind != payload.KindObject {
		return SafeString(v)
	}
	return SafeString(parsed.Obj.Get("reasonsList"))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp reformats an ISO-8601 timestamp to TimestampLayout in UTC.
// Unparseable input is returned unchanged.
func Timestamp(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	t, ok := ParseTime(trimmed)
	if !ok {
		return s
	}
	return t.UTC().Format(TimestampLayout)
}

// ParseTime parses the ISO-8601 variants the API emits. Values without a
// zone are taken as UTC.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
