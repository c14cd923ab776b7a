package feed

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string, k int, tags ...nostr.Tag) *nostr.Event {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	ev := &nostr.Event{Kind: k, CreatedAt: nostr.Timestamp(t.Unix()), Tags: tags, Content: s}
	ev.ID = ev.GetID()
	return ev
}

func separators(entries []Entry) (s []bool) {
	for _, e := range entries {
		s = append(s, e.Separator)
	}
	return
}

func TestLayoutSeparators(t *testing.T) {
	// newest first, the way pages arrive
	evs := []*nostr.Event{
		at("2024-03-03T09:00:00Z", 9),
		at("2024-03-02T23:59:59Z", 9),
		at("2024-03-02T08:00:00Z", 11, nostr.Tag{"title", "x"}),
		at("2024-03-01T12:00:00Z", 1, nostr.Tag{"e", "id", "", "reply"}),
		at("2024-03-01T10:00:00Z", 9, nostr.Tag{"q", "id"}),
	}
	entries := Layout(evs, time.UTC)
	require.Len(t, entries, 5)
	assert.Equal(t, []bool{true, false, true, false, true}, separators(entries))
	assert.Equal(t, evs[4], entries[0].Event)
	assert.True(t, entries[0].Reply)
	assert.True(t, entries[1].Reply)
	assert.True(t, entries[2].Thread)
	assert.False(t, entries[4].Reply)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), entries[2].Day)
}

func TestLayoutTimezone(t *testing.T) {
	evs := []*nostr.Event{
		at("2024-03-01T22:00:00Z", 9),
		at("2024-03-02T01:00:00Z", 9),
	}
	assert.Equal(t, []bool{true, false}, separators(Layout(evs, time.FixedZone("UTC-5", -5*3600))))
	assert.Equal(t, []bool{true, true}, separators(Layout(evs, time.UTC)))
}

func TestLayoutEmpty(t *testing.T) {
	assert.Empty(t, Layout(nil, time.UTC))
}

func TestLayoutDoesNotReorderInput(t *testing.T) {
	evs := []*nostr.Event{at("2024-03-02T00:00:00Z", 9), at("2024-03-01T00:00:00Z", 9)}
	first := evs[0]
	Layout(evs, time.UTC)
	assert.Same(t, first, evs[0])
}
