// Package group reads NIP-29 group state: metadata, rosters and the list of
// groups hosted by the selected relay.
package group

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
)

// DefaultID is the id of the relay-wide general group.
const DefaultID = "_"

type Group struct {
	ID      string
	Name    string
	About   string
	Picture string
	// Public and Open are nil when the metadata carries neither flag.
	Public      *bool
	Open        *bool
	MemberCount *int

	LastMetadataUpdate nostr.Timestamp
}

func flag(b bool) *bool { return &b }

// Default is the metadata shown for a group that has none.
func Default(id string) Group {
	g := Group{ID: id, Public: flag(true), Open: flag(true)}
	if id == DefaultID {
		g.Name, g.About = "General", "General discussion for this relay"
	} else {
		g.Name, g.About = "Group "+id, "A Nostr group chat"
	}
	return g
}

func (g Group) IsPublic() bool { return g.Public == nil || *g.Public }
func (g Group) IsOpen() bool   { return g.Open == nil || *g.Open }

// ToMetadataEvent renders the group as an unsigned metadata event.
func (g Group) ToMetadataEvent() *nostr.Event {
	ev := &nostr.Event{
		Kind:      kind.GroupMetadata.ToInt(),
		CreatedAt: g.LastMetadataUpdate,
		Content:   g.About,
	}
	vs := []tag.Variant{tag.Identifier{Value: g.ID}}
	if g.Name != "" {
		vs = append(vs, tag.Meta{Key: "name", Value: g.Name})
	}
	if g.About != "" {
		vs = append(vs, tag.Meta{Key: "about", Value: g.About})
	}
	if g.Picture != "" {
		vs = append(vs, tag.Meta{Key: "picture", Value: g.Picture})
	}
	if g.Public != nil {
		if *g.Public {
			vs = append(vs, tag.Flag{Key: "public"})
		} else {
			vs = append(vs, tag.Flag{Key: "private"})
		}
	}
	if g.Open != nil {
		if *g.Open {
			vs = append(vs, tag.Flag{Key: "open"})
		} else {
			vs = append(vs, tag.Flag{Key: "closed"})
		}
	}
	ev.Tags = tag.Build(vs...)
	return ev
}

// MergeInMetadataEvent applies a metadata event that is newer than the last one
// merged. Private and closed take precedence over public and open.
func (g *Group) MergeInMetadataEvent(ev *nostr.Event) error {
	if ev.Kind != kind.GroupMetadata.ToInt() {
		return fmt.Errorf("expected kind %d, got %d", kind.GroupMetadata, ev.Kind)
	}
	if ev.CreatedAt <= g.LastMetadataUpdate && g.LastMetadataUpdate != 0 {
		return fmt.Errorf("event is older than our last update (%d vs %d)",
			ev.CreatedAt, g.LastMetadataUpdate)
	}
	g.LastMetadataUpdate = ev.CreatedAt
	g.Name, g.About, g.Picture = "", "", ""
	g.Public, g.Open = nil, nil
	if d, ok := tag.First[tag.Identifier](ev.Tags); ok {
		g.ID = d.Value
	}
	g.Name = g.ID
	for _, v := range tag.ParseAll(ev.Tags) {
		switch v := v.(type) {
		case tag.Meta:
			switch v.Key {
			case "name":
				g.Name = v.Value
			case "about":
				g.About = v.Value
			case "picture":
				g.Picture = v.Value
			}
		case tag.Flag:
			switch v.Key {
			case "public":
				if g.Public == nil {
					g.Public = flag(true)
				}
			case "private":
				g.Public = flag(false)
			case "open":
				if g.Open == nil {
					g.Open = flag(true)
				}
			case "closed":
				g.Open = flag(false)
			}
		}
	}
	return nil
}

// FromMetadata parses a metadata event.
func FromMetadata(ev *nostr.Event) (g Group, err error) {
	err = g.MergeInMetadataEvent(ev)
	return
}

// Members returns the member keys listed in a roster event, in order.
func Members(ev *nostr.Event) (keys []string) {
	keys = []string{}
	for _, p := range tag.All[tag.Pubkey](ev.Tags) {
		keys = append(keys, p.Key)
	}
	return
}
