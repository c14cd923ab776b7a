package pool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relaychat/pkg/pool"
	"github.com/Hubmakerlabs/relaychat/pkg/pool/pooltest"
	"github.com/Hubmakerlabs/relaychat/pkg/router"
)

const (
	groupRelay = "wss://groups.example.com"
	generalA   = "wss://a.example.com"
	generalB   = "wss://b.example.com"
)

func event(k int, at nostr.Timestamp, tags ...nostr.Tag) *nostr.Event {
	ev := &nostr.Event{Kind: k, CreatedAt: at, Tags: tags, Content: "x"}
	ev.ID = ev.GetID()
	return ev
}

func setup(preferred ...string) (*pool.Pool, *pooltest.Relays) {
	mem := pooltest.New()
	r := router.New(router.NewSelection(groupRelay), generalA, generalB)
	return pool.New(r, mem, preferred...), mem
}

func TestQueryGroupScopedHitsSelectedRelayOnly(t *testing.T) {
	p, mem := setup()
	mem.Store(groupRelay, event(9, 10, nostr.Tag{"h", "G"}))
	mem.Store(generalA, event(9, 11, nostr.Tag{"h", "G"}))
	evs, err := p.Query(context.Background(), nostr.Filters{{Kinds: []int{9}}})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	calls := mem.Queries()
	require.Len(t, calls, 1)
	assert.Equal(t, groupRelay, calls[0].URL)
}

func TestQueryMergesAndDeduplicates(t *testing.T) {
	p, mem := setup()
	shared := event(1, 10)
	mem.Store(groupRelay, shared, event(1, 12))
	mem.Store(generalA, shared)
	mem.Store(generalB, shared, event(1, 13))
	evs, err := p.Query(context.Background(), nostr.Filters{{Kinds: []int{1}}})
	require.NoError(t, err)
	assert.Len(t, evs, 3)
	assert.Len(t, mem.Queries(), 3)
}

func TestQueryPartialFailure(t *testing.T) {
	p, mem := setup()
	mem.Store(generalB, event(1, 10))
	mem.Fail(groupRelay, errors.New("down"))
	mem.Fail(generalA, errors.New("down"))
	evs, err := p.Query(context.Background(), nostr.Filters{{Kinds: []int{1}}})
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestQueryAllFailed(t *testing.T) {
	p, mem := setup()
	mem.Fail(groupRelay, errors.New("down"))
	_, err := p.Query(context.Background(), nostr.Filters{{Kinds: []int{9}}})
	assert.Error(t, err)
}

func TestQueryDeadline(t *testing.T) {
	p, mem := setup()
	release := mem.Hold(groupRelay)
	defer release()
	c, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Query(c, nostr.Filters{{Kinds: []int{9}}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueryNoRoute(t *testing.T) {
	mem := pooltest.New()
	p := pool.New(router.New(router.NewSelection(""), generalA), mem)
	_, err := p.Query(context.Background(), nostr.Filters{{Kinds: []int{9}}})
	assert.ErrorIs(t, err, pool.ErrNoRoute)
}

func TestPublish(t *testing.T) {
	p, mem := setup(generalA, groupRelay, generalB)
	ev := event(9, 10, nostr.Tag{"h", "G"})
	mem.Reject(generalB, errors.New("blocked: not allowed"))
	accepted, err := p.Publish(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []string{groupRelay, generalA}, accepted)
	assert.Len(t, mem.Published(), 3)
	assert.Len(t, mem.Events(groupRelay), 1)
}

func TestPublishRejectedEverywhere(t *testing.T) {
	p, mem := setup()
	mem.Reject(groupRelay, errors.New("blocked"))
	_, err := p.Publish(context.Background(), event(9, 10))
	assert.ErrorIs(t, err, pool.ErrRejected)
	assert.Empty(t, mem.Events(groupRelay))
}

func TestPreferred(t *testing.T) {
	p, _ := setup(generalA)
	p.SetPreferred(generalB)
	assert.Equal(t, []string{generalB}, p.Preferred())
}
