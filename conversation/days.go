package conversation

import (
	"time"

	pb "github.com/mqy/minichat/proto"
)

// Day is one calendar date bucket of a conversation.
type Day struct {
	Date     time.Time // midnight in the view location
	Messages []*pb.Message
}

// DayView is a restartable view over a snapshot of a store. Buckets are built lazily by iterators.
type DayView struct {
	entries []*entry
	loc     *time.Location
}

// Iter starts a new pass over the view.
func (v *DayView) Iter() *DayIter {
	return &DayIter{view: v}
}

// All collects every bucket.
func (v *DayView) All() []Day {
	var out []Day
	it := v.Iter()
	for {
		d, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, d)
	}
}

// DayIter walks the buckets of a DayView in ascending date order.
type DayIter struct {
	view *DayView
	pos  int
}

// Next returns the next bucket, ok is false when the view is exhausted.
func (it *DayIter) Next() (day Day, ok bool) {
	entries := it.view.entries
	for it.pos < len(entries) {
		e := entries[it.pos]
		if !e.ok {
			// unparseable timestamps sort last, nothing more to group.
			it.pos = len(entries)
			break
		}
		date := truncateDay(e.at, it.view.loc)
		if !ok {
			day.Date = date
			ok = true
		} else if !date.Equal(day.Date) {
			return day, true
		}
		day.Messages = append(day.Messages, e.msg)
		it.pos++
	}
	return day, ok
}

func truncateDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
