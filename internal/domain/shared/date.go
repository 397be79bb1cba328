package shared

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of business dates
const DateLayout = "2006-01-02"

// businessHour pins stored dates to noon UTC so the calendar date survives
// any timezone conversion of at most twelve hours.
const businessHour = 12

// ParseBusinessDate maps a YYYY-MM-DD string to noon UTC of that calendar day
func ParseBusinessDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewValidationError(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", s))
	}
	return BusinessDate(t), nil
}

// BusinessDate normalizes t to noon UTC of its calendar date
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, businessHour, 0, 0, 0, time.UTC)
}

// FormatBusinessDate renders t as YYYY-MM-DD
func FormatBusinessDate(t time.Time) string {
	return BusinessDate(t).Format(DateLayout)
}

// SameDayOrLater reports whether a falls on the same calendar day as b or after it
func SameDayOrLater(a, b time.Time) bool {
	return !BusinessDate(a).Before(BusinessDate(b))
}
