package chrono

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical is the layout every normalized timestamp is rendered in.
const Canonical = "2006-01-02 15:04:05"

// Layouts are tried in order, the first one that parses wins.
var Layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006-01-02",
	"2006-01",
}

// unix timestamps with more than this many digits are in milliseconds
const secondsDigits = 10

// FromUnix converts a unix timestamp in either seconds or milliseconds.
func FromUnix(n int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if digits(n) > secondsDigits {
		return time.UnixMilli(n).In(loc)
	}
	return time.Unix(n, 0).In(loc)
}

func digits(n int64) int {
	if n < 0 {
		n = -n
	}
	return len(strconv.FormatInt(n, 10))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Parse reads s as a unix timestamp when it is all digits, otherwise it
// tries each of Layouts in order.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return FromUnix(n, loc), true
	}
	for _, layout := range Layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize renders a raw timestamp value (json number, integer or string)
// in the Canonical layout. Values that cannot be interpreted are returned as
// their original text, nil becomes "".
func Normalize(v any, loc *time.Location) string {
	switch value := v.(type) {
	case nil:
		return ""
	case int:
		return FromUnix(int64(value), loc).Format(Canonical)
	case int64:
		return FromUnix(value, loc).Format(Canonical)
	case float64:
		if value != math.Trunc(value) || math.IsInf(value, 0) {
			return strconv.FormatFloat(value, 'f', -1, 64)
		}
		return FromUnix(int64(value), loc).Format(Canonical)
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return value.String()
		}
		return FromUnix(n, loc).Format(Canonical)
	case string:
		if value == "" {
			return ""
		}
		t, ok := Parse(value, loc)
		if !ok {
			return value
		}
		return t.Format(Canonical)
	default:
		return ""
	}
}

// Format re-renders a stored timestamp string with the given layout,
// returning the original on failure.
func Format(s, layout string, loc *time.Location) string {
	t, ok := Parse(s, loc)
	if !ok {
		return s
	}
	return t.Format(layout)
}
