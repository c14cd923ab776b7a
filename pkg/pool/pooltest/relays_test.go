package pooltest

import (
	"context"
	"errors"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(k int, at nostr.Timestamp) *nostr.Event {
	e := &nostr.Event{Kind: k, CreatedAt: at}
	e.ID = e.GetID()
	return e
}

func TestQueryNewestFirstWithLimit(t *testing.T) {
	r := New()
	r.Store("wss://r", ev(9, 1), ev(9, 3), ev(9, 2), ev(1, 4))
	evs, err := r.Query(context.Background(), "wss://r",
		nostr.Filters{{Kinds: []int{9}, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, nostr.Timestamp(3), evs[0].CreatedAt)
	assert.Equal(t, nostr.Timestamp(2), evs[1].CreatedAt)
}

func TestQueryUntil(t *testing.T) {
	r := New()
	r.Store("wss://r", ev(9, 1), ev(9, 3), ev(9, 2))
	until := nostr.Timestamp(2)
	evs, err := r.Query(context.Background(), "wss://r",
		nostr.Filters{{Kinds: []int{9}, Until: &until}})
	require.NoError(t, err)
	assert.Len(t, evs, 2)
}

func TestFailAndReject(t *testing.T) {
	r := New()
	r.Fail("wss://r", errors.New("down"))
	_, err := r.Query(context.Background(), "wss://r", nostr.Filters{{}})
	assert.Error(t, err)
	r.Fail("wss://r", nil)
	_, err = r.Query(context.Background(), "wss://r", nostr.Filters{{}})
	assert.NoError(t, err)

	r.Reject("wss://r", errors.New("blocked"))
	assert.Error(t, r.Publish(context.Background(), "wss://r", ev(9, 1)))
	assert.Empty(t, r.Events("wss://r"))
	r.Reject("wss://r", nil)
	assert.NoError(t, r.Publish(context.Background(), "wss://r", ev(9, 1)))
	assert.Len(t, r.Events("wss://r"), 1)
	assert.Len(t, r.Published(), 2)
	r.Reset()
	assert.Empty(t, r.Published())
}

func TestHold(t *testing.T) {
	r := New()
	r.Store("wss://r", ev(9, 1))
	release := r.Hold("wss://r")
	done := make(chan int)
	go func() {
		evs, _ := r.Query(context.Background(), "wss://r", nostr.Filters{{}})
		done <- len(evs)
	}()
	release()
	assert.Equal(t, 1, <-done)
}

func TestDelete(t *testing.T) {
	r := New()
	a, b := ev(9, 1), ev(9, 2)
	r.Store("wss://r", a, b)
	r.Delete("wss://r", a.ID)
	evs := r.Events("wss://r")
	require.Len(t, evs, 1)
	assert.Equal(t, b.ID, evs[0].ID)
}
