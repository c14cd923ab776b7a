// Package router decides which relays receive each query filter and each
// published event: group content stays on the selected group relay, profile
// metadata goes to the general purpose relays, anything else goes to both.
package router

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
)

// MaxPublishRelays caps the destinations of a published event.
const MaxPublishRelays = 5

// DefaultGeneralRelays are used for profile metadata and general content.
var DefaultGeneralRelays = []string{
	"wss://relay.nostr.band",
	"wss://relay.damus.io",
	"wss://relay.primal.net",
}

// Class is the routing class of a filter.
type Class int

const (
	// General filters go to the selected relay and the general relays.
	General Class = iota
	// GroupScoped filters go only to the selected relay.
	GroupScoped
	// Profile filters go only to the general relays.
	Profile
)

func (c Class) String() string {
	switch c {
	case GroupScoped:
		return "group"
	case Profile:
		return "profile"
	}
	return "general"
}

// Table maps a relay URL to the filters it should receive.
type Table map[string]nostr.Filters

// Relays returns the number of destinations.
func (t Table) Relays() int { return len(t) }

func (t Table) add(relay string, f nostr.Filter) {
	if relay == "" {
		return
	}
	t[relay] = append(t[relay], f)
}

// Router is a pure function of the selection, the general relays and the
// preferred publish relays.
type Router struct {
	selection *Selection
	general   []string
}

// New creates a router. With no general relays given DefaultGeneralRelays is
// used.
func New(sel *Selection, general ...string) *Router {
	if len(general) == 0 {
		general = DefaultGeneralRelays
	}
	return &Router{selection: sel, general: append([]string{}, general...)}
}

// Selection returns the handle the router consults.
func (r *Router) Selection() *Selection { return r.selection }

// General returns a copy of the general purpose relay list.
func (r *Router) General() []string { return append([]string{}, r.general...) }

// Classify applies the routing rules in order, the first match wins.
func Classify(f nostr.Filter) Class {
	if _, ok := f.Tags[tag.NameGroup]; ok {
		return GroupScoped
	}
	for _, k := range f.Kinds {
		ki := kind.T(k)
		if kind.GroupContent.Includes(ki) || ki.IsGroupState() {
			return GroupScoped
		}
	}
	for _, k := range f.Kinds {
		if kind.T(k) == kind.ProfileMetadata {
			return Profile
		}
	}
	return General
}

// RouteQuery assigns every filter wholesale to its destination relays.
// Filters for the same relay are appended, never merged.
func (r *Router) RouteQuery(filters nostr.Filters) (t Table) {
	t = make(Table)
	selected := r.selection.Relay()
	for _, f := range filters {
		switch Classify(f) {
		case GroupScoped:
			t.add(selected, f)
		case Profile:
			for _, rl := range r.general {
				t.add(rl, f)
			}
		default:
			t.add(selected, f)
			for _, rl := range r.general {
				if rl != selected {
					t.add(rl, f)
				}
			}
		}
	}
	return
}

// RoutePublish returns the selected relay followed by preferred relays, with
// duplicates collapsed, stopping at MaxPublishRelays.
func (r *Router) RoutePublish(_ *nostr.Event, preferred []string) (relays []string) {
	seen := make(map[string]struct{}, MaxPublishRelays)
	add := func(rl string) {
		if rl == "" {
			return
		}
		if _, ok := seen[rl]; ok {
			return
		}
		seen[rl] = struct{}{}
		relays = append(relays, rl)
	}
	add(r.selection.Relay())
	for _, rl := range preferred {
		if len(relays) >= MaxPublishRelays {
			break
		}
		add(rl)
	}
	return
}
