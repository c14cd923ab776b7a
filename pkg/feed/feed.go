// Package feed lays out a unified message feed for display: oldest first with
// a date separator at each change of calendar day.
package feed

import (
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/validate"
)

// Entry is one feed line.
type Entry struct {
	Event *nostr.Event
	// Separator is set on the first entry of each calendar day.
	Separator bool
	Day       time.Time
	Reply     bool
	Thread    bool
}

// Day returns midnight of the day ts falls on in loc.
func Day(ts nostr.Timestamp, loc *time.Location) time.Time {
	y, m, d := ts.Time().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Layout sorts evs oldest first and marks each entry whose day differs from
// the entry before it. The first entry always has a separator.
func Layout(evs []*nostr.Event, loc *time.Location) (entries []Entry) {
	if loc == nil {
		loc = time.Local
	}
	sorted := fetch.Arrange(append([]*nostr.Event{}, evs...), fetch.Ascending)
	entries = make([]Entry, 0, len(sorted))
	for i, ev := range sorted {
		e := Entry{
			Event:  ev,
			Day:    Day(ev.CreatedAt, loc),
			Reply:  validate.IsReply(ev),
			Thread: kind.T(ev.Kind) == kind.Thread,
		}
		e.Separator = i == 0 || !e.Day.Equal(entries[i-1].Day)
		entries = append(entries, e)
	}
	return
}
