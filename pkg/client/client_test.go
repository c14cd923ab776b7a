package client

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relaychat/pkg/compose"
	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/codec"
	"github.com/Hubmakerlabs/relaychat/pkg/pool/pooltest"
	"github.com/Hubmakerlabs/relaychat/pkg/signer"
	"github.com/Hubmakerlabs/relaychat/pkg/zap"
)

const (
	first  = "wss://first.example.com"
	second = "wss://second.example.com"
)

func newClient(s signer.Signer) (*Client, *pooltest.Relays) {
	mem := pooltest.New()
	return New(Config{Relay: first, General: []string{"wss://general.example.com"}}, mem, s), mem
}

func TestReadOnly(t *testing.T) {
	cl, _ := newClient(nil)
	_, err := cl.Composer()
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = cl.Zaps()
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Nil(t, cl.Signer())
}

func TestSelectRelayRestartsComments(t *testing.T) {
	key := signer.Generate()
	cl, mem := newClient(key)
	c := context.Background()
	comp, err := cl.Composer()
	require.NoError(t, err)

	sent, err := comp.CreateThread(c, compose.Thread{Group: "G", Title: "Pizza", Content: "?"})
	require.NoError(t, err)
	thread := sent.Event
	target := compose.Target{EventID: thread.ID, Author: thread.PubKey}
	for i := 0; i < 3; i++ {
		comp.Now = func() nostr.Timestamp { return nostr.Timestamp(100 + i) }
		_, err = comp.SendComment(c, compose.Comment{Group: "G", Thread: target,
			Content: fmt.Sprint("comment ", i)})
		require.NoError(t, err)
	}

	h := cl.Fetcher.Handle(func() fetch.Collection {
		coll := fetch.Comments
		coll.PageSize = 2
		return coll
	}(), fetch.Scope{Group: "G", Thread: thread.ID})
	require.Len(t, h.Load(c), 1)
	comp.Now = func() nostr.Timestamp { return 200 }
	_, err = comp.SendComment(c, compose.Comment{Group: "G", Thread: target, Content: "late"})
	require.NoError(t, err)
	// the comment invalidated the key, reload then page forward
	h.Load(c)
	_, ok := h.Next(c)
	require.True(t, ok)
	require.Len(t, h.Pages(), 2)

	v := cl.SelectRelay(second)
	assert.Equal(t, uint64(2), v)
	assert.Nil(t, h.Pages())
	mem.Reset()
	p, ok := h.Next(c)
	require.True(t, ok)
	assert.Empty(t, p.Items)
	q := mem.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, second, q[0].URL)
	assert.Nil(t, q[0].Filters[0].Since)
	assert.Nil(t, q[0].Filters[0].Until)
}

func TestZapSummary(t *testing.T) {
	cl, mem := newClient(nil)
	target := strings.Repeat("ab", 32)
	for i, bolt11 := range []string{"lnbc100u1pxyz", "lnbc50n1pxyz", "lnbc7p1pxyz", "lnbc3m1pxyz"} {
		ev := &nostr.Event{Kind: 9735, CreatedAt: nostr.Timestamp(i + 1), Tags: nostr.Tags{
			{"e", target}, {"bolt11", bolt11}, {"description", `{"pubkey":"x"}`},
		}}
		ev.ID = ev.GetID()
		mem.Store(first, ev)
	}
	s := cl.ZapSummary(context.Background(), target)
	assert.Equal(t, zap.Summary{Pico: 3_100_050_007, Count: 4}, s)
}

func TestThreadLink(t *testing.T) {
	cl, _ := newClient(nil)
	thread := &nostr.Event{ID: strings.Repeat("ab", 32), PubKey: strings.Repeat("cd", 32)}
	link, err := cl.ThreadLink(thread)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "nostr:nevent1"))
	p, err := codec.DecodeEvent(link)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, p.ID)
	assert.Equal(t, []string{first}, p.Relays)
}

func TestZapRequestUsesSelectedRelay(t *testing.T) {
	cl, _ := newClient(signer.Generate())
	z, err := cl.Zaps()
	require.NoError(t, err)
	cl.SelectRelay(second)
	ev, err := z.Request(context.Background(), zap.RequestParams{
		EventID: strings.Repeat("ab", 32), Author: "a", Sats: 21})
	require.NoError(t, err)
	assert.Equal(t, nostr.Tag{"relays", second}, ev.Tags[0])
}
