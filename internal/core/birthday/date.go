// Package birthday keeps the birthday list: a JSON file of one entry per
// user, read and rewritten under a file lock.
package birthday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadFormat    = errors.New("date must be DD-MM-YYYY")
	ErrBadChars     = errors.New("date contains non-numeric parts")
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	ErrInvalidDay   = errors.New("day does not exist in that month")
)

// Date is a calendar birthday
type Date struct {
	Day   int
	Month int
	Year  int
}

// ParseDate reads DD-MM-YYYY. The day is checked against the real calendar
// of that month and year.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, ErrBadFormat
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrBadChars, p)
		}
		nums[i] = n
	}
	d := Date{Day: nums[0], Month: nums[1], Year: nums[2]}

	if d.Month < 1 || d.Month > 12 {
		return Date{}, ErrInvalidMonth
	}
	if d.Year < 1 || d.Day < 1 || d.Day > daysIn(d.Month, d.Year) {
		return Date{}, ErrInvalidDay
	}
	return d, nil
}

func daysIn(month, year int) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String formats the date as DD-MM-YYYY
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, d.Month, d.Year)
}

// DaysUntil counts whole days from today to the next occurrence of the
// birthday, 0 when it is today. Dates are compared in UTC so daylight
// saving changes never skew the count. A 29 February birthday falls on
// 1 March in common years.
func (d Date) DaysUntil(today time.Time) int {
	y, m, day := today.Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)

	next := time.Date(y, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	if next.Before(start) {
		next = time.Date(y+1, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	}
	return int(next.Sub(start).Hours() / 24)
}
