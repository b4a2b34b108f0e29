package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTimestamp renders d as HH:MM:SS<sep>mmm. Hours widen past 99.
func FormatTimestamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// ParseTimestamp accepts HH:MM:SS.mmm, MM:SS.mmm and the SRT comma form.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, frac, ok := strings.Cut(strings.Replace(value, ",", ".", 1), ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	millis, err := parseDigits(frac)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	parts := strings.Split(clock, ":")
	var h, m, s int
	switch len(parts) {
	case 3:
		if h, err = parseDigits(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		parts = parts[1:]
	case 2:
	default:
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if m, err = parseDigits(parts[0]); err != nil || m > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if s, err = parseDigits(parts[1]); err != nil || s > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}

// parseTimingLine splits "start --> end [settings]".
func parseTimingLine(line string) (time.Duration, time.Duration, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("missing timing separator")
	}
	start, err := ParseTimestamp(left)
	if err != nil {
		return 0, 0, fmt.Errorf("start time: %w", err)
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("missing end time")
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("end time: %w", err)
	}
	return start, end, nil
}
