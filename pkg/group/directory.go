package group

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
)

// Registry key names.
const (
	NameGroups   = "groups"
	NameMetadata = "group-metadata"
	NameMembers  = "group-members"
)

const listLimit = 100

// Directory answers group state queries against the selected relay and caches
// the answers in the registry.
type Directory struct {
	querier  fetch.Querier
	registry *fetch.Registry

	// Retries is the number of extra attempts at the group list after a
	// failed query.
	Retries int
	// Backoff is the wait before retry n, multiplied by n.
	Backoff       time.Duration
	ListTimeout   time.Duration
	LookupTimeout time.Duration
}

// NewDirectory creates a directory with two list retries.
func NewDirectory(q fetch.Querier, reg *fetch.Registry) *Directory {
	return &Directory{
		querier:       q,
		registry:      reg,
		Retries:       2,
		Backoff:       500 * time.Millisecond,
		ListTimeout:   5 * time.Second,
		LookupTimeout: 3 * time.Second,
	}
}

// ListKey is the registry key of the group list.
func ListKey() fetch.Key { return fetch.Key{Name: NameGroups} }

// MetadataKey is the registry key of one group's metadata.
func MetadataKey(id string) fetch.Key {
	return fetch.Key{Name: NameMetadata, Scope: fetch.Scope{Group: id}}
}

// MembersKey is the registry key of one group's roster.
func MembersKey(id string) fetch.Key {
	return fetch.Key{Name: NameMembers, Scope: fetch.Scope{Group: id}}
}

// List returns the groups on the selected relay with member counts from their
// rosters. A failing query is retried up to Retries times; when every attempt
// fails, or the relay has no groups, the list is the default group alone.
func (d *Directory) List(c context.Context) (groups []Group) {
	var err error
	if groups, err = d.Fetch(c); err != nil {
		log.W.F("failed to fetch groups: %v", err)
		return []Group{Default(DefaultID)}
	}
	return
}

// Fetch is List without the fallback: when every attempt fails it returns the
// last error and no groups, so callers can tell a failed listing from a relay
// that only has the default group.
func (d *Directory) Fetch(c context.Context) (groups []Group, err error) {
	if cached, ok := fetch.Load[[]Group](d.registry, ListKey()); ok {
		return cached, nil
	}
	tok := d.registry.Begin(ListKey())
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-c.Done():
				log.D.F("group list retries abandoned: %v", c.Err())
				return nil, c.Err()
			case <-time.After(time.Duration(attempt) * d.Backoff):
			}
		}
		if groups, err = d.list(c); err == nil {
			break
		}
		log.D.F("group list attempt %d failed: %v", attempt+1, err)
	}
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		groups = []Group{Default(DefaultID)}
	}
	d.registry.Commit(tok, groups)
	return
}

func (d *Directory) list(c context.Context) (groups []Group, err error) {
	c, cancel := context.WithTimeout(c, d.ListTimeout)
	defer cancel()
	var evs []*nostr.Event
	if evs, err = d.querier.Query(c, nostr.Filters{
		{Kinds: []int{kind.GroupMetadata.ToInt()}, Limit: listLimit},
		{Kinds: []int{kind.GroupMembers.ToInt()}, Limit: listLimit},
	}); err != nil {
		return
	}
	counts := make(map[string]int)
	byID := make(map[string]int)
	for _, ev := range evs {
		switch kind.T(ev.Kind) {
		case kind.GroupMembers:
			if id, ok := tag.First[tag.Identifier](ev.Tags); ok && id.Value != "" {
				counts[id.Value] = len(Members(ev))
			}
		case kind.GroupMetadata:
			var g Group
			if g, err = FromMetadata(ev); chk.D(err) {
				continue
			}
			if i, ok := byID[g.ID]; ok {
				// a newer metadata event replaces the older one in place
				chk.T(groups[i].MergeInMetadataEvent(ev))
				continue
			}
			byID[g.ID] = len(groups)
			groups = append(groups, g)
		}
	}
	err = nil
	for i := range groups {
		if n, ok := counts[groups[i].ID]; ok {
			groups[i].MemberCount = &n
		}
	}
	return
}

func (d *Directory) lookup(c context.Context, k kind.T, id string) (*nostr.Event, error) {
	c, cancel := context.WithTimeout(c, d.LookupTimeout)
	defer cancel()
	evs, err := d.querier.Query(c, nostr.Filters{{
		Kinds: []int{k.ToInt()},
		Tags:  nostr.TagMap{tag.NameIdentifier: {id}},
		Limit: 1,
	}})
	if err != nil {
		return nil, err
	}
	var newest *nostr.Event
	for _, ev := range evs {
		if ev.Kind != k.ToInt() {
			continue
		}
		if dt, ok := tag.First[tag.Identifier](ev.Tags); !ok || dt.Value != id {
			continue
		}
		if newest == nil || ev.CreatedAt > newest.CreatedAt {
			newest = ev
		}
	}
	return newest, nil
}

// Metadata returns the metadata of group id, or Default(id) when the relay
// has none or cannot be reached.
func (d *Directory) Metadata(c context.Context, id string) Group {
	if g, ok := fetch.Load[Group](d.registry, MetadataKey(id)); ok {
		return g
	}
	tok := d.registry.Begin(MetadataKey(id))
	ev, err := d.lookup(c, kind.GroupMetadata, id)
	if err != nil {
		log.D.F("failed to fetch metadata of group %s: %v", id, err)
		return Default(id)
	}
	if ev == nil {
		g := Default(id)
		d.registry.Commit(tok, g)
		return g
	}
	g, err := FromMetadata(ev)
	if chk.D(err) {
		return Default(id)
	}
	d.registry.Commit(tok, g)
	return g
}

// Members returns the member keys of group id, empty when there is no roster
// or it cannot be fetched.
func (d *Directory) Members(c context.Context, id string) []string {
	if keys, ok := fetch.Load[[]string](d.registry, MembersKey(id)); ok {
		return keys
	}
	tok := d.registry.Begin(MembersKey(id))
	ev, err := d.lookup(c, kind.GroupMembers, id)
	if err != nil {
		log.D.F("failed to fetch members of group %s: %v", id, err)
		return []string{}
	}
	keys := []string{}
	if ev != nil {
		keys = Members(ev)
	}
	d.registry.Commit(tok, keys)
	return keys
}
