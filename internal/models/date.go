package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day. It carries no location: the
// location is supplied whenever a Date is turned into instants or derived
// from one.
type Date = civil.Date

// DateOf returns the calendar day an observer in loc perceives for t
func DateOf(t time.Time, loc *time.Location) Date {
	return civil.DateOf(t.In(loc))
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, ErrValidation)
	}
	return d, nil
}

// BrazilianFormat renders d as dd/mm/yyyy
func BrazilianFormat(d Date) string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewDateRange validates and builds a range
func NewDateRange(start, end Date) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("range end %s is before start %s: %w", end, start, ErrValidation)
	}
	return DateRange{Start: start, End: end}, nil
}

// Days returns the number of calendar days covered, both ends included
func (r DateRange) Days() int {
	return r.End.DaysSince(r.Start) + 1
}

// Contains reports whether d falls inside the range
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Bounds returns the half-open instant interval [from, to) covering the
// range in loc. to is the midnight following the end day, so records late on
// the end day are still inside.
func (r DateRange) Bounds(loc *time.Location) (from, to time.Time) {
	return r.Start.In(loc), r.End.AddDays(1).In(loc)
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// LastDays returns the window of n calendar days ending on the day now
// falls on in loc.
func LastDays(now time.Time, loc *time.Location, n int) DateRange {
	end := DateOf(now, loc)
	return DateRange{Start: end.AddDays(-(n - 1)), End: end}
}

// Filters is the period filter applied to list, trend and stats views. A
// filter only takes effect when both ends are set.
type Filters struct {
	Start *Date `json:"dataInicio,omitempty"`
	End   *Date `json:"dataFim,omitempty"`
}

// Range returns the active date range, if any
func (f Filters) Range() (DateRange, bool) {
	if f.Start == nil || f.End == nil {
		return DateRange{}, false
	}
	return DateRange{Start: *f.Start, End: *f.End}, true
}

// Signature identifies the filter in cache keys
func (f Filters) Signature() string {
	r, ok := f.Range()
	if !ok {
		return "all"
	}
	return r.String()
}

// FiltersFor builds a filter covering r
func FiltersFor(r DateRange) Filters {
	start, end := r.Start, r.End
	return Filters{Start: &start, End: &end}
}

// ParseFilters builds filters from the raw dataInicio/dataFim query values.
// Empty values leave the corresponding end unset.
func ParseFilters(start, end string) (Filters, error) {
	var f Filters
	if start != "" {
		d, err := ParseDate(start)
		if err != nil {
			return Filters{}, err
		}
		f.Start = &d
	}
	if end != "" {
		d, err := ParseDate(end)
		if err != nil {
			return Filters{}, err
		}
		f.End = &d
	}
	if r, ok := f.Range(); ok {
		if _, err := NewDateRange(r.Start, r.End); err != nil {
			return Filters{}, err
		}
	}
	return f, nil
}

// ParseTimestamp accepts RFC3339 instants as well as the local forms sent by
// date inputs (YYYY-MM-DD and YYYY-MM-DDTHH:MM), which are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", dateLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, ErrValidation)
}
