package trigger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Formatter turns a raw property value into the payload value.
type Formatter func(raw string) (any, error)

// FormatLevel parses the leading decimal integer of raw ("37", " 37%",
// "37.9" all give 37).
func FormatLevel(raw string) (any, error) {
	n, ok := parseLeadingInt(raw)
	if !ok {
		return nil, fmt.Errorf("level %q is not a number", raw)
	}
	return n, nil
}

// FormatPlugged reports whether a charger is connected; "NC" means not
// connected, any other state means plugged.
func FormatPlugged(raw string) (any, error) {
	return raw != "NC", nil
}

// parseLeadingInt reads an optional sign and the leading decimal digits.
// Digit runs that overflow int are rejected rather than rounded; charge
// levels never come close.
func parseLeadingInt(raw string) (int, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// lastValue is what a threshold field remembers between notifications.
// truthy mirrors whether the stored value counts as a prior reading.
type lastValue struct {
	truthy  bool
	numeric bool
	num     float64
}

func formattedValue(n int) lastValue {
	return lastValue{truthy: n != 0, numeric: true, num: float64(n)}
}

// rawValue stores the string as received. Any non-empty string counts as a
// prior reading; its numeric value is only usable if the whole string is a
// number. Only decimal forms count; hex or binary literals are not charge
// levels.
func rawValue(raw string) lastValue {
	lv := lastValue{truthy: raw != ""}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && !math.IsNaN(f) {
		lv.numeric = true
		lv.num = f
	}
	return lv
}

func (lv lastValue) atOrBelow(limit int) bool {
	return lv.truthy && lv.numeric && lv.num <= float64(limit)
}
