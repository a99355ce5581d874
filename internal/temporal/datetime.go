// Package temporal parses user-entered search dates and formats them for CMR.
package temporal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CMRTimeFormat is the layout CMR accepts in the temporal parameter.
const CMRTimeFormat = "2006-01-02T15:04:05Z"

// ErrInvalidDate is returned when a date entry is not "YYYY,MM,DD".
var ErrInvalidDate = errors.New("invalid date")

// Range is an inclusive search window. Start <= End is the caller's
// responsibility.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses a "YYYY,MM,DD" entry such as "2017,07,01" into midnight UTC.
// Surrounding whitespace around each part is ignored; anything else is an
// error, including out-of-range months or days.
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYY,MM,DD", ErrInvalidDate, s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
		}
		nums[i] = n
	}

	year, month, day := nums[0], nums[1], nums[2]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes overflow (e.g. Feb 30 -> Mar 2); reject it instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w %q: day out of range", ErrInvalidDate, s)
	}

	return t, nil
}

// FormatCMRTime formats a time the way CMR expects it.
func FormatCMRTime(t time.Time) string {
	return t.UTC().Format(CMRTimeFormat)
}

// FormatCMRRange formats a range as CMR's "start,end" temporal string.
func FormatCMRRange(r Range) string {
	return FormatCMRTime(r.Start) + "," + FormatCMRTime(r.End)
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return r.Start.Format(time.DateOnly) + "/" + r.End.Format(time.DateOnly)
}
