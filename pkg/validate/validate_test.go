package validate

import (
	"fmt"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
)

const author = "c9d556c6d3978d112d30616d0d20aaa81410e3653911dd67787b5aaf9b36ade8"

var seq nostr.Timestamp = 1700000000

func mk(k kind.T, content string, tags ...nostr.Tag) *nostr.Event {
	seq++
	ev := &nostr.Event{
		PubKey:    author,
		CreatedAt: seq,
		Kind:      k.ToInt(),
		Tags:      tags,
		Content:   content,
	}
	ev.ID = ev.GetID()
	return ev
}

func TestChatMessagesOfOneGroup(t *testing.T) {
	var raw []*nostr.Event
	for i := 0; i < 5; i++ {
		g := "G"
		if i%2 == 1 {
			g = "H"
		}
		raw = append(raw, mk(kind.ChatMessage, fmt.Sprint("msg ", i), nostr.Tag{"h", g}))
	}
	chats := Keep(raw, ChatIn("G"))
	require.Len(t, chats, 3)
	for _, ev := range chats {
		assert.True(t, InGroup(ev, "G"))
	}
	// re-validating a validated set filters nothing further
	assert.Equal(t, chats, Keep(chats, ChatIn("G")))
	assert.Empty(t, Keep(chats, ChatIn("H")))
}

func TestChatMessage(t *testing.T) {
	assert.True(t, ChatMessage(mk(kind.ChatMessage, "hi", nostr.Tag{"h", "G"}), "G"))
	assert.False(t, ChatMessage(mk(kind.TextNote, "hi", nostr.Tag{"h", "G"}), "G"))
	assert.False(t, ChatMessage(mk(kind.ChatMessage, "hi"), "G"))
	assert.False(t, ChatMessage(mk(kind.ChatMessage, "hi", nostr.Tag{"h"}), "G"))
}

func TestGroupMessage(t *testing.T) {
	h := nostr.Tag{"h", "G"}
	assert.True(t, GroupMessage(mk(kind.TextNote, "legacy", h), "G"))
	assert.True(t, GroupMessage(mk(kind.ChatMessage, "chat", h), "G"))
	assert.True(t, GroupMessage(mk(kind.Thread, "post", h, nostr.Tag{"title", "Pizza"}), "G"))
	assert.False(t, GroupMessage(mk(kind.Thread, "post", h), "G"))
	assert.False(t, GroupMessage(mk(kind.Thread, "post", h, nostr.Tag{"title", ""}), "G"))
	assert.False(t, GroupMessage(mk(kind.Comment, "comment", h), "G"))
	assert.False(t, GroupMessage(mk(kind.TextNote, "legacy", nostr.Tag{"h", "H"}), "G"))
}

func TestThread(t *testing.T) {
	h := nostr.Tag{"h", "G"}
	ev := mk(kind.Thread, "post", h, nostr.Tag{"title", "Pizza"})
	assert.True(t, Thread(ev, "G"))
	title, ok := Title(ev)
	assert.True(t, ok)
	assert.Equal(t, "Pizza", title)
	assert.False(t, Thread(ev, "H"))
	assert.False(t, Thread(mk(kind.Thread, "post", h), "G"))
	assert.False(t, Thread(mk(kind.ChatMessage, "post", h, nostr.Tag{"title", "Pizza"}), "G"))
}

func TestCommentsOfOneThread(t *testing.T) {
	h := nostr.Tag{"h", "G"}
	thread := mk(kind.Thread, "what toppings?", h, nostr.Tag{"title", "Pizza"})
	other := mk(kind.Thread, "which dough?", h, nostr.Tag{"title", "Bread"})
	comment := func(root *nostr.Event, rootKind string) *nostr.Event {
		return mk(kind.Comment, "reply", h,
			nostr.Tag{"K", rootKind},
			nostr.Tag{"E", root.ID, "wss://groups.example.com", root.PubKey},
			nostr.Tag{"e", root.ID, "wss://groups.example.com", root.PubKey},
			nostr.Tag{"k", rootKind},
		)
	}
	good1 := comment(thread, "11")
	wrongRoot := comment(other, "11")
	wrongKind := comment(thread, "1")
	good2 := comment(thread, "11")
	noH := mk(kind.Comment, "reply", nostr.Tag{"K", "11"}, nostr.Tag{"E", thread.ID})

	got := Keep([]*nostr.Event{good1, wrongRoot, wrongKind, good2, noH}, CommentOn("G", thread.ID))
	assert.Equal(t, []*nostr.Event{good1, good2}, got)
}

func TestZapReceipt(t *testing.T) {
	desc := nostr.Tag{"description", `{"kind":9734,"tags":[["e","x"]]}`}
	inv := nostr.Tag{"bolt11", "lnbc100u1pxyz"}
	assert.True(t, ZapReceipt(mk(kind.ZapReceipt, "", inv, desc)))
	assert.False(t, ZapReceipt(mk(kind.ZapReceipt, "", desc)))
	assert.False(t, ZapReceipt(mk(kind.ZapReceipt, "", inv)))
	assert.False(t, ZapReceipt(mk(kind.ZapReceipt, "", inv, nostr.Tag{"description", `{"kind":`})))
	assert.False(t, ZapReceipt(mk(kind.ZapRequest, "", inv, desc)))
}

func TestIsReply(t *testing.T) {
	h := nostr.Tag{"h", "G"}
	assert.True(t, IsReply(mk(kind.ChatMessage, "x", h, nostr.Tag{"q", "id", "wss://r", author})))
	assert.False(t, IsReply(mk(kind.ChatMessage, "x", h, nostr.Tag{"e", "id", "wss://r", "reply"})))
	assert.True(t, IsReply(mk(kind.TextNote, "x", h, nostr.Tag{"e", "id", "wss://r", "reply"})))
	assert.False(t, IsReply(mk(kind.TextNote, "x", h, nostr.Tag{"e", "id", "wss://r", "mention"})))
	assert.False(t, IsReply(mk(kind.TextNote, "x", h, nostr.Tag{"q", "id", "wss://r", author})))
	assert.False(t, IsReply(mk(kind.Thread, "x", h, nostr.Tag{"title", "t"})))
}

func TestPredicatesAreIdempotent(t *testing.T) {
	h := nostr.Tag{"h", "G"}
	events := []*nostr.Event{
		mk(kind.ChatMessage, "a", h),
		mk(kind.Thread, "b", h, nostr.Tag{"title", "T"}),
		mk(kind.TextNote, "c", nostr.Tag{"h", "H"}),
		mk(kind.ZapReceipt, "", nostr.Tag{"bolt11", "lnbc1m1"}, nostr.Tag{"description", "{}"}),
	}
	preds := []Predicate{ChatIn("G"), MessageIn("G"), ThreadIn("G"), CommentOn("G", "x"), ZapReceipt}
	for _, ev := range events {
		for _, p := range preds {
			assert.Equal(t, p(ev), p(ev))
		}
	}
}
