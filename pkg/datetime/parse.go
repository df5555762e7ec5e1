// Package datetime provides a calendar date type and the day and month
// arithmetic the loan engine relies on.
package datetime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-tracker/pkg/constants"
)

const (
	// Layout is the format expected in stored records and config files and is
	// also the output date format.
	Layout = constants.DateLayout

	// readLayout is permissive and allows single-digit month/day.
	readLayout = "2006-1-2"

	secondsPerDay = 24 * 60 * 60
)

// Date is a calendar date with day granularity. The zero value is the
// "no date" sentinel and is rejected by validation.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day; e.g.
// January 32 becomes February 1.
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t.Year(), t.Month(), t.Day()}
}

// FromTime strips the time of day from t, in t's own location.
func FromTime(t time.Time) Date {
	return New(t.Date())
}

// Today returns the current local date.
func Today() Date { return FromTime(time.Now()) }

// Parse reads a date in YYYY-MM-DD form. Single-digit months and days are
// accepted, as are full RFC 3339 timestamps whose time part is dropped.
func Parse(value string) (Date, error) {
	trimmed := strings.TrimSpace(value)
	if t, err := time.Parse(readLayout, trimmed); err == nil {
		return FromTime(t), nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return FromTime(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q, expected format %s", value, Layout)
}

// MustParse parses a date string and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParse(value string) Date {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after x.
func (d Date) Compare(x Date) int { return d.time().Compare(x.time()) }

// AddDays returns the date i days after d (before d when i is negative).
func (d Date) AddDays(i int) Date { return New(d.y, d.m, d.d+i) }

// AddMonths returns the date i calendar months after d. Days past the end
// of the target month roll into the following month, so January 31 plus one
// month is March 3 (or March 2 in a leap year).
func (d Date) AddMonths(i int) Date { return New(d.y, d.m+time.Month(i), d.d) }

// Format returns a textual representation of the date using a time layout.
func (d Date) Format(layout string) string { return d.time().Format(layout) }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.Format(Layout) }

// DaysBetween returns the absolute number of whole calendar days between a
// and b. A time.Duration saturates after about 292 years, so the count is
// taken from Unix seconds.
func DaysBetween(a, b Date) int {
	days := int((b.time().Unix() - a.time().Unix()) / secondsPerDay)
	if days < 0 {
		return -days
	}
	return days
}

// AnniversaryMonths returns the number of whole calendar months from start
// to now. A month only counts once its day-of-month anniversary has been
// reached: from January 4, February 3 is 0 months and February 4 is 1.
func AnniversaryMonths(start, now Date) int {
	months := (now.y-start.y)*constants.MonthsPerYear + int(now.m-start.m)
	if now.d < start.d {
		months--
	}
	return months
}

// MarshalJSON writes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a date from a JSON string. An empty string leaves the
// zero Date so validation can report it.
func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if strings.TrimSpace(str) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
)
