// Package validate classifies raw events into the semantic kinds of the group
// chat protocol. Every predicate is pure and total: an event that does not
// satisfy it is simply excluded, never reported as an error.
package validate

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
)

// Predicate accepts or rejects a single event.
type Predicate func(ev *nostr.Event) bool

// Keep returns the events accepted by p, in their original order.
func Keep(events []*nostr.Event, p Predicate) (out []*nostr.Event) {
	out = make([]*nostr.Event, 0, len(events))
	for _, ev := range events {
		if ev != nil && p(ev) {
			out = append(out, ev)
		}
	}
	return
}

// InGroup reports whether the first group tag of ev names groupID.
func InGroup(ev *nostr.Event, groupID string) bool {
	g, ok := tag.First[tag.Group](ev.Tags)
	return ok && g.ID == groupID
}

// Title returns the non-empty title of a thread post.
func Title(ev *nostr.Event) (title string, ok bool) {
	t, ok := tag.First[tag.Title](ev.Tags)
	if !ok || t.Text == "" {
		return "", false
	}
	return t.Text, true
}

// ChatMessage is a chat kind event in the group.
func ChatMessage(ev *nostr.Event, groupID string) bool {
	return kind.T(ev.Kind) == kind.ChatMessage && InGroup(ev, groupID)
}

// GroupMessage is any event of the unified feed: a legacy note, a chat
// message or a titled thread post, in the group.
func GroupMessage(ev *nostr.Event, groupID string) bool {
	k := kind.T(ev.Kind)
	if !kind.Unified.Includes(k) || !InGroup(ev, groupID) {
		return false
	}
	if k == kind.Thread {
		_, ok := Title(ev)
		return ok
	}
	return true
}

// Thread is a titled thread post in the group.
func Thread(ev *nostr.Event, groupID string) bool {
	if kind.T(ev.Kind) != kind.Thread || !InGroup(ev, groupID) {
		return false
	}
	_, ok := Title(ev)
	return ok
}

// Comment is a comment in the group whose root is the given thread.
func Comment(ev *nostr.Event, groupID, threadID string) bool {
	if kind.T(ev.Kind) != kind.Comment || !InGroup(ev, groupID) {
		return false
	}
	rk, ok := tag.First[tag.RootKind](ev.Tags)
	if !ok || rk.Kind != kind.Thread {
		return false
	}
	re, ok := tag.First[tag.RootEvent](ev.Tags)
	return ok && re.EventID == threadID
}

// ZapReceipt is a receipt with an invoice and a description that parses as
// JSON. A malformed description invalidates the receipt whatever else it
// carries.
func ZapReceipt(ev *nostr.Event) bool {
	if kind.T(ev.Kind) != kind.ZapReceipt {
		return false
	}
	inv, ok := tag.First[tag.Invoice](ev.Tags)
	if !ok || inv.Bolt11 == "" {
		return false
	}
	desc, ok := tag.First[tag.Description](ev.Tags)
	if !ok || desc.Raw == "" {
		return false
	}
	return gjson.Valid(desc.Raw)
}

// IsReply reports whether a message is a reply, for display only. Chat
// messages mark replies with a quote tag, legacy notes with an e tag whose
// fourth element is the reply marker. Other kinds are never replies.
func IsReply(ev *nostr.Event) bool {
	switch kind.T(ev.Kind) {
	case kind.ChatMessage:
		_, ok := tag.First[tag.Quote](ev.Tags)
		return ok
	case kind.TextNote:
		for _, r := range tag.All[tag.Ref](ev.Tags) {
			if r.Marker == tag.MarkerReply {
				return true
			}
		}
	}
	return false
}

// ChatIn binds ChatMessage to a group.
func ChatIn(groupID string) Predicate {
	return func(ev *nostr.Event) bool { return ChatMessage(ev, groupID) }
}

// MessageIn binds GroupMessage to a group.
func MessageIn(groupID string) Predicate {
	return func(ev *nostr.Event) bool { return GroupMessage(ev, groupID) }
}

// ThreadIn binds Thread to a group.
func ThreadIn(groupID string) Predicate {
	return func(ev *nostr.Event) bool { return Thread(ev, groupID) }
}

// CommentOn binds Comment to a group and thread.
func CommentOn(groupID, threadID string) Predicate {
	return func(ev *nostr.Event) bool { return Comment(ev, groupID, threadID) }
}
