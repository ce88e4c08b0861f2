// Package datetime provides date utility functions for labeling schedule
// rows with calendar months.
package datetime

import (
	"time"

	"github.com/tmorand/auto-loan-calc/pkg/constants"
)

// DateTimeLayout is the YYYY-MM format used for schedule date labels.
const DateTimeLayout = constants.DateTimeLayout

// MustParseTime parses a date string using the given layout and panics on
// error. This is intended for use in tests where the date string is known to
// be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// DateBeforeDate returns true if firstDate is strictly before secondDate.
func DateBeforeDate(firstDate string, secondDate string) (bool, error) {
	firstDateT, err := time.Parse(DateTimeLayout, firstDate)
	if err != nil {
		return false, err
	}
	secondDateT, err := time.Parse(DateTimeLayout, secondDate)
	if err != nil {
		return false, err
	}
	return firstDateT.Before(secondDateT), nil
}
