package domain

import "time"

const day = 24 * time.Hour

// DateRange is an inclusive range of calendar dates. Only the UTC date portion
// of each bound is significant. A zero bound leaves that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Lower returns the first instant covered by the range and whether it is bounded.
func (r DateRange) Lower() (time.Time, bool) {
	if r.From.IsZero() {
		return time.Time{}, false
	}
	return truncateDay(r.From), true
}

// Upper returns the first instant after the range (exclusive) and whether it
// is bounded.
func (r DateRange) Upper() (time.Time, bool) {
	if r.To.IsZero() {
		return time.Time{}, false
	}
	return truncateDay(r.To).Add(day), true
}

// Inverted reports whether both bounds are set and From falls after To.
func (r DateRange) Inverted() bool {
	if r.From.IsZero() || r.To.IsZero() {
		return false
	}
	return truncateDay(r.From).After(truncateDay(r.To))
}

// Contains reports whether ts falls on a date inside the range.
func (r DateRange) Contains(ts time.Time) bool {
	ts = ts.UTC()
	if lo, ok := r.Lower(); ok && ts.Before(lo) {
		return false
	}
	if hi, ok := r.Upper(); ok && !ts.Before(hi) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MessageFilter narrows the message log. Every zero field means "no constraint
// on that dimension"; set fields compose with logical AND.
type MessageFilter struct {
	Status MessageStatus
	Range  DateRange
	Events []string
}

// Matches is the in-memory form of the filter. Store queries must select
// exactly the messages for which it returns true.
func (f MessageFilter) Matches(m Message) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if !f.Range.Contains(m.Timestamp) {
		return false
	}
	if len(f.Events) > 0 {
		found := false
		for _, e := range f.Events {
			if e == m.Event {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
