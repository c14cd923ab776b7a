// Package kind holds the event kinds spoken by group chat relays, so they are
// referred to as `kind.Thread` rather than bare numbers.
package kind

import (
	"strconv"

	"golang.org/x/exp/slices"
)

// T - which will be externally referenced as kind.T is the event type in the
// nostr protocol.
type T int

func (ki T) ToInt() int { return int(ki) }

// String renders the kind the way tag values carry it, e.g. the root kind
// discriminator of a comment.
func (ki T) String() string { return strconv.Itoa(int(ki)) }

// Name returns the descriptive name of a known kind, or the number otherwise.
func (ki T) Name() string {
	if n, ok := Map[ki]; ok {
		return n
	}
	return ki.String()
}

const (
	// ProfileMetadata stores user profile data, display name, lightning
	// address, etc.
	ProfileMetadata T = 0
	// TextNote is the legacy group message: a plain text note carrying a group
	// tag.
	TextNote T = 1
	// ChatMessage is a short group chat message.
	ChatMessage T = 9
	// Thread is a titled thread post in a group.
	Thread T = 11
	// Comment is a nested comment scoped to a root event by upper case tags and
	// to its parent by lower case tags.
	Comment T = 1111
	// ZapRequest is the signed payment request handed to a lightning service.
	ZapRequest T = 9734
	// ZapReceipt is published by the lightning service once a zap is paid.
	ZapReceipt T = 9735
	// GroupMetadata is the relay-signed name/about/picture/status of a group.
	GroupMetadata T = 39000
	// GroupAdmins lists the admins of a group and their roles.
	GroupAdmins T = 39001
	// GroupMembers is the membership roster of a group.
	GroupMembers T = 39002
	// GroupRoles lists the roles supported by a group.
	GroupRoles T = 39003

	groupRangeStart T = 39000
	groupRangeEnd   T = 39005
)

var Map = map[T]string{
	ProfileMetadata: "ProfileMetadata",
	TextNote:        "TextNote",
	ChatMessage:     "ChatMessage",
	Thread:          "Thread",
	Comment:         "Comment",
	ZapRequest:      "ZapRequest",
	ZapReceipt:      "ZapReceipt",
	GroupMetadata:   "GroupMetadata",
	GroupAdmins:     "GroupAdmins",
	GroupMembers:    "GroupMembers",
	GroupRoles:      "GroupRoles",
}

// IsGroupState reports whether the kind is one of the relay-generated group
// state events (39000 to 39005 inclusive).
func (ki T) IsGroupState() bool { return ki >= groupRangeStart && ki <= groupRangeEnd }

// Range is a sorted set of kinds.
type Range []T

// NewRange copies and sorts the given kinds.
func NewRange(k ...T) (r Range) {
	r = append(Range{}, k...)
	slices.Sort(r)
	return slices.Compact(r)
}

// Includes reports whether k is in the range.
func (r Range) Includes(k T) bool {
	_, ok := slices.BinarySearch(r, k)
	return ok
}

// Ints converts the range to the plain ints filters carry.
func (r Range) Ints() (is []int) {
	is = make([]int, len(r))
	for i := range r {
		is[i] = int(r[i])
	}
	return
}

var (
	// GroupContent are the kinds whose events live on the group relay.
	GroupContent = NewRange(ChatMessage, Thread)
	// Timeline are the kinds referenced by the previous tag of a new post.
	Timeline = NewRange(ChatMessage, Thread, Comment)
	// UnifiedTimeline extends Timeline with legacy text notes.
	UnifiedTimeline = NewRange(TextNote, ChatMessage, Thread, Comment)
	// Unified are the kinds shown in the unified message feed.
	Unified = NewRange(TextNote, ChatMessage, Thread)
)
