package model

import (
	"fmt"
	"strconv"
	"strings"
)

// DaySeconds is the length of one service day.
const DaySeconds = 24 * 60 * 60

// TimeToSeconds parses an "HH:MM:SS" time-of-day string into seconds since
// midnight. Totals of 86400 and above are valid and represent service
// continuing past midnight. Returns ok=false for anything that doesn't
// parse; malformed schedule data is reported as absent, never as a failure.
func TimeToSeconds(t string) (int, bool) {
	parts := strings.Split(t, ":")
	if len(parts) != 3 {
		return 0, false
	}

	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	s, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil {
		return 0, false
	}

	return h*3600 + m*60 + s, true
}

// FormatSeconds renders a seconds-since-midnight total as "HH:MM:SS", each
// component zero padded to two digits. Negative totals render with a
// leading '-', so FormatSeconds(-65) == "-00:01:05". The inverse of
// TimeToSeconds for all non-negative totals.
func FormatSeconds(total int) string {
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}

	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}
