package codec

import (
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testID     = "a84c5de86efc2ec2cff7bad077c4171e09146b633b7ad117fffe088d9579ac33"
	testAuthor = "c9d556c6d3978d112d30616d0d20aaa81410e3653911dd67787b5aaf9b36ade8"
)

func TestEventRoundTrip(t *testing.T) {
	p := nostr.EventPointer{ID: testID, Relays: []string{"wss://groups.example.com"}, Author: testAuthor}
	s, err := EncodeEvent(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "nevent1"))
	got, err := DecodeEvent(s)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Relays, got.Relays)
	assert.Equal(t, p.Author, got.Author)
	got, err = DecodeEvent(URIScheme + s)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestDecodeHex(t *testing.T) {
	got, err := DecodeEvent(testID)
	require.NoError(t, err)
	assert.Equal(t, testID, got.ID)
}

func TestDecodeErrors(t *testing.T) {
	for _, s := range []string{"", "nevent1garbage", "hello", testID[:60]} {
		_, err := DecodeEvent(s)
		assert.ErrorIs(t, err, ErrDecode, s)
	}
	_, err := EncodeEvent(nostr.EventPointer{ID: "xyz"})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestQuoteContent(t *testing.T) {
	p := nostr.EventPointer{ID: testID, Relays: []string{"wss://groups.example.com"}, Author: testAuthor}
	content, err := QuoteContent(p, "agreed")
	require.NoError(t, err)
	lines := strings.SplitN(content, "\n", 2)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "nostr:nevent1"))
	assert.Equal(t, "agreed", lines[1])
	q := QuotedEvent(&nostr.Event{Content: content})
	require.NotNil(t, q)
	assert.Equal(t, testID, q.ID)
	assert.Nil(t, QuotedEvent(&nostr.Event{Content: "agreed " + lines[0]}))
}

func TestParseReferences(t *testing.T) {
	nevent, err := EncodeEvent(nostr.EventPointer{ID: testID})
	require.NoError(t, err)
	ev := &nostr.Event{
		Tags: nostr.Tags{
			{"p", testAuthor, "wss://nostr.com"},
			{"h", "pizza"},
		},
		Content: "hello #[0], see nostr:" + nevent + " and #[1] and #[7]",
	}
	refs := ParseReferences(ev)
	require.Len(t, refs, 2)
	assert.Equal(t, "#[0]", refs[0].Text)
	require.NotNil(t, refs[0].Profile)
	assert.Equal(t, testAuthor, refs[0].Profile.PublicKey)
	assert.Equal(t, []string{"wss://nostr.com"}, refs[0].Profile.Relays)
	require.NotNil(t, refs[1].Event)
	assert.Equal(t, testID, refs[1].Event.ID)
}
