package signer

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	k := Generate()
	ev := &nostr.Event{Kind: 9, CreatedAt: nostr.Now(), Tags: nostr.Tags{{"h", "G"}}, Content: "hi"}
	require.NoError(t, k.Sign(context.Background(), ev))
	assert.Equal(t, k.PublicKey(), ev.PubKey)
	assert.Equal(t, ev.GetID(), ev.ID)
	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignCancelled(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	cancel()
	ev := &nostr.Event{Kind: 9}
	assert.Error(t, Generate().Sign(c, ev))
	assert.Empty(t, ev.Sig)
}

func TestNewKeyNsec(t *testing.T) {
	k := Generate()
	nsec, err := k.Nsec()
	require.NoError(t, err)
	back, err := NewKey(nsec)
	require.NoError(t, err)
	assert.Equal(t, k.PublicKey(), back.PublicKey())
	npub, err := back.Npub()
	require.NoError(t, err)
	assert.Contains(t, npub, "npub1")
}

func TestNewKeyInvalid(t *testing.T) {
	for _, s := range []string{"", "abc", "nsec1qqqq", "zz" + string(make([]byte, 62))} {
		_, err := NewKey(s)
		assert.ErrorIs(t, err, ErrInvalidKey, s)
	}
}
