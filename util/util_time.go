package util

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Datetime related utility functions.
// General convention for date Functions - suffix Z if utc based.
const (
	DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"
	DATETIME_FORMAT_DDMMYYYY_HYPHEN string = "02-01-2006"
	DATETIME_FORMAT_DDMMYYYY_SLASH  string = "02/01/2006"
	DATETIME_FORMAT_DB              string = "2006-01-02 15:04:05"
)

// Enrollment dates in the customer export are day first.
var customerDateLayouts = []string{
	DATETIME_FORMAT_DDMMYYYY_HYPHEN,
	DATETIME_FORMAT_YYYYMMDD_HYPHEN,
	DATETIME_FORMAT_DB,
	DATETIME_FORMAT_DDMMYYYY_SLASH,
}

var ErrUnparseableDate = errors.New("unparseable date")

// ParseCustomerDateZ parses a customer date cell in UTC, truncated to the day.
func ParseCustomerDateZ(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrUnparseableDate
	}
	for _, layout := range customerDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return GetBeginningOfDayTimeZ(t), nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}

// GetBeginningOfDayTimeZ returns midnight UTC of the given time's UTC date.
func GetBeginningOfDayTimeZ(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeNowZ Return current time in UTC. Should be used everywhere to avoid local timezone.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// FormatDateZ formats a date as YYYY-MM-DD in UTC.
func FormatDateZ(t time.Time) string {
	return t.UTC().Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN)
}
