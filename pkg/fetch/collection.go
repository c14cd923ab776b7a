package fetch

import (
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relaychat/pkg/validate"
)

// Order is the sort order of a collection's pages.
type Order int

const (
	// Descending is newest first, later pages go back in time.
	Descending Order = iota
	// Ascending is oldest first, later pages go forward in time.
	Ascending
)

// Collection describes one paginated collection type.
type Collection struct {
	Name     string
	Kinds    kind.Range
	PageSize int
	// Timeout bounds every page query.
	Timeout time.Duration
	// Refresh is the interval at which Watch re-fetches the first page.
	Refresh time.Duration
	Order   Order
	// Tags returns the tag constraints of the query for a scope.
	Tags func(s Scope) nostr.TagMap
	// Accept returns the validator predicate for a scope.
	Accept func(s Scope) validate.Predicate
}

// Key returns the registry key of the collection for s.
func (c Collection) Key(s Scope) Key { return Key{Name: c.Name, Scope: s} }

// Filter builds the query of a page. cursor is nil for the first page. The
// cursor second is included, items of the previous page that sit on it are
// skipped by the fetcher.
func (c Collection) Filter(s Scope, cursor *nostr.Timestamp) (f nostr.Filter) {
	f = nostr.Filter{Kinds: c.Kinds.Ints(), Limit: c.PageSize}
	if c.Tags != nil {
		f.Tags = c.Tags(s)
	}
	if cursor == nil {
		return
	}
	bound := *cursor
	switch c.Order {
	case Ascending:
		f.Since = &bound
	default:
		f.Until = &bound
	}
	return
}

func inGroup(s Scope) nostr.TagMap {
	return nostr.TagMap{tag.NameGroup: {s.Group}}
}

// Collection names.
const (
	NameChats    = "chats"
	NameMessages = "messages"
	NameThreads  = "threads"
	NameComments = "comments"
	NameZaps     = "zaps"
)

var (
	// Chats are the chat messages of a group.
	Chats = Collection{
		Name:     NameChats,
		Kinds:    kind.NewRange(kind.ChatMessage),
		PageSize: 50,
		Timeout:  5 * time.Second,
		Refresh:  30 * time.Second,
		Tags:     inGroup,
		Accept:   func(s Scope) validate.Predicate { return validate.ChatIn(s.Group) },
	}
	// Messages is the unified feed of a group: legacy notes, chat messages
	// and thread posts.
	Messages = Collection{
		Name:     NameMessages,
		Kinds:    kind.Unified,
		PageSize: 50,
		Timeout:  5 * time.Second,
		Refresh:  30 * time.Second,
		Tags:     inGroup,
		Accept:   func(s Scope) validate.Predicate { return validate.MessageIn(s.Group) },
	}
	// Threads are the thread posts of a group.
	Threads = Collection{
		Name:     NameThreads,
		Kinds:    kind.NewRange(kind.Thread),
		PageSize: 20,
		Timeout:  5 * time.Second,
		Refresh:  60 * time.Second,
		Tags:     inGroup,
		Accept:   func(s Scope) validate.Predicate { return validate.ThreadIn(s.Group) },
	}
	// Comments are the comments on one thread, oldest first.
	Comments = Collection{
		Name:     NameComments,
		Kinds:    kind.NewRange(kind.Comment),
		PageSize: 50,
		Timeout:  5 * time.Second,
		Refresh:  30 * time.Second,
		Order:    Ascending,
		Tags: func(s Scope) nostr.TagMap {
			return nostr.TagMap{
				tag.NameGroup:     {s.Group},
				tag.NameRootEvent: {s.Thread},
			}
		},
		Accept: func(s Scope) validate.Predicate {
			return validate.CommentOn(s.Group, s.Thread)
		},
	}
	// Zaps are the zap receipts for one event.
	Zaps = Collection{
		Name:     NameZaps,
		Kinds:    kind.NewRange(kind.ZapReceipt),
		PageSize: 100,
		Timeout:  3 * time.Second,
		Refresh:  60 * time.Second,
		Tags: func(s Scope) nostr.TagMap {
			return nostr.TagMap{tag.NameRef: {s.Event}}
		},
		Accept: func(Scope) validate.Predicate { return validate.ZapReceipt },
	}
)

// Collections lists every collection definition.
var Collections = []Collection{Chats, Messages, Threads, Comments, Zaps}
