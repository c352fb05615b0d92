package defence

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// deadlineZoneOffset is how far the requesters' clock runs ahead of UTC.
const deadlineZoneOffset = time.Hour

// ValidateClock checks a 24-hour HH:mm value.
func ValidateClock(clock string) error {
	if !clockPattern.MatchString(clock) {
		return ErrInvalidTimeFormat
	}
	return nil
}

// ResolveDeadline turns a UTC+1 wall-clock time into the nearest
// instant at or after now with that clock reading.
func ResolveDeadline(now time.Time, clock string) (time.Time, error) {
	if err := ValidateClock(clock); err != nil {
		return time.Time{}, err
	}
	parts := strings.SplitN(clock, ":", 2)
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])

	now = now.UTC()
	day := now.Day()
	hours -= int(deadlineZoneOffset / time.Hour)
	if hours < 0 {
		hours += 24
		day--
	}

	at := time.Date(now.Year(), now.Month(), day, hours, minutes, 0, 0, time.UTC)
	for at.Before(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
