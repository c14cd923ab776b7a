// Package tag models event tags as a closed set of variants keyed by tag name.
// Anything that is not a known, well formed tag parses to Unknown, so switches
// over Variant stay exhaustive.
package tag

import (
	"strconv"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
)

// The tag position meanings so they are clear when reading.
const (
	Key = iota
	Value
	Relay
	Fourth
)

// Marker strings for e (reference) tags.
const (
	MarkerReply   = "reply"
	MarkerRoot    = "root"
	MarkerMention = "mention"
)

// Tag names.
const (
	NameGroup       = "h"
	NameTitle       = "title"
	NameQuote       = "q"
	NameRef         = "e"
	NamePubkey      = "p"
	NameParentKind  = "k"
	NameRootEvent   = "E"
	NameRootKind    = "K"
	NameRootPubkey  = "P"
	NamePrevious    = "previous"
	NameInvoice     = "bolt11"
	NameDescription = "description"
	NameAmount      = "amount"
	NameRelays      = "relays"
	NameIdentifier  = "d"
)

// Variant is one parsed tag.
type Variant interface {
	// Name is the tag name, the first element of the raw tag.
	Name() string
	// Tag renders the variant back to its raw form.
	Tag() nostr.Tag
	isVariant()
}

type (
	// Group scopes an event to a group: ["h", <group id>].
	Group struct{ ID string }
	// Title is the title of a thread post.
	Title struct{ Text string }
	// Quote marks a chat reply: ["q", <event id>, <relay>, <author>].
	Quote struct{ EventID, Relay, Author string }
	// Ref is an event reference: ["e", <event id>, <relay>, <marker>]. Legacy
	// replies carry "reply" as Marker, comment parent references carry the
	// parent author in that position.
	Ref struct{ EventID, Relay, Marker string }
	// Pubkey references a user: ["p", <pubkey>, <relay>].
	Pubkey struct{ Key, Relay string }
	// ParentKind is the kind of a comment's parent.
	ParentKind struct{ Kind kind.T }
	// RootEvent is the root scope of a comment: ["E", <id>, <relay>, <author>].
	RootEvent struct{ EventID, Relay, Author string }
	// RootKind is the kind of a comment's root event.
	RootKind struct{ Kind kind.T }
	// RootPubkey is the author of a comment's root event.
	RootPubkey struct{ Key, Relay string }
	// Previous holds truncated ids of recent events in the same group.
	Previous struct{ IDs []string }
	// Invoice is the bolt11 invoice of a zap receipt.
	Invoice struct{ Bolt11 string }
	// Description is the serialized zap request carried by a zap receipt.
	Description struct{ Raw string }
	// Amount is the requested zap amount in millisatoshis.
	Amount struct{ Millisats int64 }
	// Relays lists the relays a zap receipt should be published to.
	Relays struct{ URLs []string }
	// Identifier is the d tag of an addressable event, the group id of group
	// state events.
	Identifier struct{ Value string }
	// Meta is a group metadata field: name, about or picture.
	Meta struct{ Key, Value string }
	// Flag is a valueless group status tag: public, private, open or closed.
	Flag struct{ Key string }
	// Unknown is any tag that is not one of the above or is malformed.
	Unknown struct{ Raw nostr.Tag }
)

func (Group) Name() string       { return NameGroup }
func (Title) Name() string       { return NameTitle }
func (Quote) Name() string       { return NameQuote }
func (Ref) Name() string         { return NameRef }
func (Pubkey) Name() string      { return NamePubkey }
func (ParentKind) Name() string  { return NameParentKind }
func (RootEvent) Name() string   { return NameRootEvent }
func (RootKind) Name() string    { return NameRootKind }
func (RootPubkey) Name() string  { return NameRootPubkey }
func (Previous) Name() string    { return NamePrevious }
func (Invoice) Name() string     { return NameInvoice }
func (Description) Name() string { return NameDescription }
func (Amount) Name() string      { return NameAmount }
func (Relays) Name() string      { return NameRelays }
func (Identifier) Name() string  { return NameIdentifier }
func (m Meta) Name() string      { return m.Key }
func (f Flag) Name() string      { return f.Key }

func (u Unknown) Name() string {
	if len(u.Raw) == 0 {
		return ""
	}
	return u.Raw[Key]
}

func (v Group) Tag() nostr.Tag       { return nostr.Tag{NameGroup, v.ID} }
func (v Title) Tag() nostr.Tag       { return nostr.Tag{NameTitle, v.Text} }
func (v Quote) Tag() nostr.Tag       { return trim(nostr.Tag{NameQuote, v.EventID, v.Relay, v.Author}) }
func (v Pubkey) Tag() nostr.Tag      { return trim(nostr.Tag{NamePubkey, v.Key, v.Relay}) }
func (v ParentKind) Tag() nostr.Tag  { return nostr.Tag{NameParentKind, v.Kind.String()} }
func (v RootEvent) Tag() nostr.Tag   { return trim(nostr.Tag{NameRootEvent, v.EventID, v.Relay, v.Author}) }
func (v RootKind) Tag() nostr.Tag    { return nostr.Tag{NameRootKind, v.Kind.String()} }
func (v RootPubkey) Tag() nostr.Tag  { return trim(nostr.Tag{NameRootPubkey, v.Key, v.Relay}) }
func (v Invoice) Tag() nostr.Tag     { return nostr.Tag{NameInvoice, v.Bolt11} }
func (v Description) Tag() nostr.Tag { return nostr.Tag{NameDescription, v.Raw} }
func (v Identifier) Tag() nostr.Tag  { return nostr.Tag{NameIdentifier, v.Value} }
func (v Meta) Tag() nostr.Tag        { return nostr.Tag{v.Key, v.Value} }
func (v Flag) Tag() nostr.Tag        { return nostr.Tag{v.Key} }
func (v Unknown) Tag() nostr.Tag     { return v.Raw }

func (v Ref) Tag() nostr.Tag {
	return trim(nostr.Tag{NameRef, v.EventID, v.Relay, v.Marker})
}

// trim drops empty optional positions from the end of t, keeping the value.
func trim(t nostr.Tag) nostr.Tag {
	for len(t) > Relay && t[len(t)-1] == "" {
		t = t[:len(t)-1]
	}
	return t
}

func (v Previous) Tag() nostr.Tag {
	return append(nostr.Tag{NamePrevious}, v.IDs...)
}

func (v Amount) Tag() nostr.Tag {
	return nostr.Tag{NameAmount, strconv.FormatInt(v.Millisats, 10)}
}

func (v Relays) Tag() nostr.Tag {
	return append(nostr.Tag{NameRelays}, v.URLs...)
}

func (Group) isVariant()       {}
func (Title) isVariant()       {}
func (Quote) isVariant()       {}
func (Ref) isVariant()         {}
func (Pubkey) isVariant()      {}
func (ParentKind) isVariant()  {}
func (RootEvent) isVariant()   {}
func (RootKind) isVariant()    {}
func (RootPubkey) isVariant()  {}
func (Previous) isVariant()    {}
func (Invoice) isVariant()     {}
func (Description) isVariant() {}
func (Amount) isVariant()      {}
func (Relays) isVariant()      {}
func (Identifier) isVariant()  {}
func (Meta) isVariant()        {}
func (Flag) isVariant()        {}
func (Unknown) isVariant()     {}

// at returns element i of t or the empty string.
func at(t nostr.Tag, i int) string {
	if i < len(t) {
		return t[i]
	}
	return ""
}

// Parse classifies a raw tag. Tags that need a value and have none, and kind
// or amount tags that do not hold an integer, are Unknown.
func Parse(t nostr.Tag) Variant {
	if len(t) == 0 {
		return Unknown{Raw: t}
	}
	switch t[Key] {
	case "public", "private", "open", "closed":
		return Flag{Key: t[Key]}
	case NamePrevious:
		return Previous{IDs: append([]string{}, t[Value:]...)}
	case NameRelays:
		return Relays{URLs: append([]string{}, t[Value:]...)}
	}
	if len(t) < 2 {
		return Unknown{Raw: t}
	}
	v := t[Value]
	switch t[Key] {
	case NameGroup:
		return Group{ID: v}
	case NameTitle:
		return Title{Text: v}
	case NameQuote:
		return Quote{EventID: v, Relay: at(t, Relay), Author: at(t, Fourth)}
	case NameRef:
		return Ref{EventID: v, Relay: at(t, Relay), Marker: at(t, Fourth)}
	case NamePubkey:
		return Pubkey{Key: v, Relay: at(t, Relay)}
	case NameRootEvent:
		return RootEvent{EventID: v, Relay: at(t, Relay), Author: at(t, Fourth)}
	case NameRootPubkey:
		return RootPubkey{Key: v, Relay: at(t, Relay)}
	case NameParentKind, NameRootKind:
		k, err := strconv.Atoi(v)
		if err != nil {
			return Unknown{Raw: t}
		}
		if t[Key] == NameRootKind {
			return RootKind{Kind: kind.T(k)}
		}
		return ParentKind{Kind: kind.T(k)}
	case NameInvoice:
		return Invoice{Bolt11: v}
	case NameDescription:
		return Description{Raw: v}
	case NameAmount:
		msat, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Unknown{Raw: t}
		}
		return Amount{Millisats: msat}
	case NameIdentifier:
		return Identifier{Value: v}
	case "name", "about", "picture":
		return Meta{Key: t[Key], Value: v}
	}
	return Unknown{Raw: t}
}

// ParseAll parses every tag in order.
func ParseAll(tags nostr.Tags) (vs []Variant) {
	vs = make([]Variant, len(tags))
	for i := range tags {
		vs[i] = Parse(tags[i])
	}
	return
}

// First returns the first tag that parses to the variant V.
func First[V Variant](tags nostr.Tags) (v V, ok bool) {
	for _, t := range tags {
		if v, ok = Parse(t).(V); ok {
			return
		}
	}
	return
}

// All returns every tag that parses to the variant V, in order.
func All[V Variant](tags nostr.Tags) (vs []V) {
	for _, t := range tags {
		if v, ok := Parse(t).(V); ok {
			vs = append(vs, v)
		}
	}
	return
}

// Build renders variants into a tag list.
func Build(vs ...Variant) (tags nostr.Tags) {
	tags = make(nostr.Tags, 0, len(vs))
	for _, v := range vs {
		tags = append(tags, v.Tag())
	}
	return
}
