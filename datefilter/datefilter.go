// Package datefilter selects customers by enrollment date.
package datefilter

import (
	"fmt"
	"sort"
	"time"

	"github.com/jinzhu/now"

	M "custseg/model"
)

// EndDayOfMonth is the day of the end month a range stops at. Ranges end on
// the 28th of the end month, whatever the month's length.
const EndDayOfMonth = 28

// Range is an inclusive enrollment date range.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange builds the range from the first day of the start month to the
// 28th of the end month. ok is false if a month is outside 1..12.
func NewRange(startYear, startMonth, endYear, endMonth int) (Range, bool) {
	if !validMonth(startMonth) || !validMonth(endMonth) {
		return Range{}, false
	}
	start := now.New(time.Date(startYear, time.Month(startMonth), EndDayOfMonth, 0, 0, 0, 0, time.UTC)).BeginningOfMonth()
	end := time.Date(endYear, time.Month(endMonth), EndDayOfMonth, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: end}, true
}

func validMonth(month int) bool {
	return month >= 1 && month <= 12
}

// Contains reports whether t falls within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// IsEmpty is true when the start is after the end.
func (r Range) IsEmpty() bool {
	return r.Start.After(r.End)
}

// Key identifies the range by its bounding months, e.g. 2021-01_2021-03.
func (r Range) Key() string {
	return fmt.Sprintf("%04d-%02d_%04d-%02d", r.Start.Year(), int(r.Start.Month()), r.End.Year(), int(r.End.Month()))
}

// Filter returns the customers enrolled within the range, in input order.
func (r Range) Filter(customers []M.Customer) []M.Customer {
	filtered := make([]M.Customer, 0)
	if r.IsEmpty() {
		return filtered
	}
	for i := range customers {
		if r.Contains(customers[i].EnrolledAt) {
			filtered = append(filtered, customers[i])
		}
	}
	return filtered
}

// FilterByDate returns the customers enrolled between the first day of
// (startYear, startMonth) and the 28th of (endYear, endMonth), inclusive.
// An inverted or invalid range yields an empty result, never an error.
func FilterByDate(customers []M.Customer, startYear, startMonth, endYear, endMonth int) []M.Customer {
	r, ok := NewRange(startYear, startMonth, endYear, endMonth)
	if !ok {
		return make([]M.Customer, 0)
	}
	return r.Filter(customers)
}

// Years returns the distinct enrollment years of the customers, ascending.
func Years(customers []M.Customer) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for i := range customers {
		year := customers[i].EnrolledAt.Year()
		if !seen[year] {
			seen[year] = true
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years
}
