package services

import (
	"fmt"
	"regexp"
	"strconv"
)

// durationRegexp accepts "2h 30m", "2h30m", "2h 30 mins", "2 hr 5 min" and
// similar hour+minute shapes, case-insensitively.
var durationRegexp = regexp.MustCompile(`(?i)^\s*(\d+)\s*h(?:rs?|ours?)?\s*(\d+)\s*m(?:ins?|inutes?)?\s*$`)

// FormatError reports a duration string that has no integer hour part and
// integer minute part.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("duration %q is not in <H>h <M>m form", e.Input)
}

// NormalizeDuration renders a provider duration as "<H>h <MM>m", hours
// unpadded and minutes zero-padded to two digits.
func NormalizeDuration(raw string) (string, error) {
	m := durationRegexp.FindStringSubmatch(raw)
	if m == nil {
		return "", &FormatError{Input: raw}
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return "", &FormatError{Input: raw}
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return "", &FormatError{Input: raw}
	}
	return fmt.Sprintf("%dh %02dm", hours, minutes), nil
}
