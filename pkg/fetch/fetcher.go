// Package fetch is the paginated collection engine: bounded page queries that
// degrade to empty pages, cursor computation, and a registry of cached
// results that is invalidated explicitly by writes and relay switches.
package fetch

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/puzpuzpuz/xsync/v2"
	"golang.org/x/exp/slices"

	"github.com/Hubmakerlabs/relaychat/pkg/validate"
)

// Querier runs a routed query, pool.Pool is the production implementation.
type Querier interface {
	Query(c context.Context, filters nostr.Filters) ([]*nostr.Event, error)
}

// Page is one fetched page. Cursor is nil when the collection is exhausted.
type Page struct {
	Items  []*nostr.Event
	Cursor *nostr.Timestamp
	// seen are the ids on this page created at the cursor second.
	seen []string
}

// maxWalk caps the queries spent finding the oldest end of an ascending
// collection.
const maxWalk = 32

// Fetcher issues page queries and hands out collection handles.
type Fetcher struct {
	querier  Querier
	registry *Registry
	metrics  *Metrics
	handles  *xsync.MapOf[string, *Handle]
}

// New creates a Fetcher. m may be nil.
func New(q Querier, reg *Registry, m *Metrics) *Fetcher {
	return &Fetcher{
		querier:  q,
		registry: reg,
		metrics:  m,
		handles:  xsync.NewMapOf[*Handle](),
	}
}

// Registry returns the cache the fetcher commits to.
func (f *Fetcher) Registry() *Registry { return f.registry }

// Page fetches the page after cursor, validates and sorts the result and
// computes the next cursor. Timeouts and transport failures yield an empty
// page.
func (f *Fetcher) Page(c context.Context, coll Collection, s Scope,
	cursor *nostr.Timestamp) Page {

	return f.page(c, coll, s, cursor, nil)
}

// After fetches the page that follows prev.
func (f *Fetcher) After(c context.Context, coll Collection, s Scope, prev Page) Page {
	return f.page(c, coll, s, prev.Cursor, prev.seen)
}

func (f *Fetcher) page(c context.Context, coll Collection, s Scope,
	cursor *nostr.Timestamp, seen []string) (p Page) {

	c, cancel := context.WithTimeout(c, coll.Timeout)
	defer cancel()
	start := time.Now()
	var evs []*nostr.Event
	var err error
	if coll.Order == Ascending {
		evs, err = f.walk(c, coll, s, cursor, len(seen))
	} else {
		flt := coll.Filter(s, cursor)
		flt.Limit += len(seen)
		evs, err = f.querier.Query(c, nostr.Filters{flt})
	}
	took := time.Since(start)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			outcome = OutcomeTimeout
		}
		log.D.F("%s page query for %s failed: %v", coll.Name, coll.Key(s), err)
		f.metrics.query(coll.Name, outcome, took, 0)
		return Page{}
	}
	items := validate.Keep(evs, coll.Accept(s))
	if len(seen) > 0 {
		items = validate.Keep(items, func(ev *nostr.Event) bool {
			return !slices.Contains(seen, ev.ID)
		})
	}
	p.Items = Arrange(items, coll.Order)
	if len(p.Items) > coll.PageSize {
		p.Items = p.Items[:coll.PageSize]
	}
	if len(p.Items) == coll.PageSize && coll.PageSize > 0 {
		p.Cursor, p.seen = advance(p.Items, cursor, coll.Order)
	}
	f.metrics.query(coll.Name, OutcomeOK, took, len(p.Items))
	return
}

// advance returns the cursor after a full page: the boundary item's creation
// time, with the ids sharing that second. A page lying entirely on the
// previous cursor's second steps one second past it instead, so cursors are
// strictly monotonic.
func advance(items []*nostr.Event, cursor *nostr.Timestamp,
	o Order) (next *nostr.Timestamp, seen []string) {

	boundary := items[len(items)-1].CreatedAt
	if cursor != nil && boundary == *cursor {
		if o == Ascending {
			boundary++
		} else {
			boundary--
		}
		return &boundary, nil
	}
	for i := len(items) - 1; i >= 0 && items[i].CreatedAt == boundary; i-- {
		seen = append(seen, items[i].ID)
	}
	return &boundary, seen
}

// walk collects every event at or after since. Relays answer newest first
// under a limit, so it steps back with until until a short answer shows the
// oldest end was reached.
func (f *Fetcher) walk(c context.Context, coll Collection, s Scope,
	since *nostr.Timestamp, extra int) (evs []*nostr.Event, err error) {

	flt := coll.Filter(s, since)
	flt.Limit += extra
	got := make(map[string]struct{})
	for i := 0; i < maxWalk; i++ {
		var chunk []*nostr.Event
		if chunk, err = f.querier.Query(c, nostr.Filters{flt}); err != nil {
			return
		}
		for _, ev := range chunk {
			if _, ok := got[ev.ID]; !ok {
				got[ev.ID] = struct{}{}
				evs = append(evs, ev)
			}
		}
		if flt.Limit <= 0 || len(chunk) < flt.Limit {
			return
		}
		oldest := chunk[0].CreatedAt
		for _, ev := range chunk[1:] {
			if ev.CreatedAt < oldest {
				oldest = ev.CreatedAt
			}
		}
		if flt.Until != nil && oldest == *flt.Until {
			oldest--
		}
		flt.Until = &oldest
	}
	log.W.F("%s walk for %s stopped after %d queries", coll.Name, coll.Key(s), maxWalk)
	return
}

// Arrange sorts events by creation time in the given order, ties broken by id
// so that pages are deterministic.
func Arrange(evs []*nostr.Event, o Order) []*nostr.Event {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.CreatedAt == b.CreatedAt {
			return a.ID < b.ID
		}
		if o == Ascending {
			return a.CreatedAt < b.CreatedAt
		}
		return a.CreatedAt > b.CreatedAt
	})
	return evs
}

// Handle returns the handle for coll in scope s. Handles are shared, so all
// callers of the same key serialise their fetches on one handle.
func (f *Fetcher) Handle(coll Collection, s Scope) (h *Handle) {
	h, _ = f.handles.LoadOrCompute(coll.Key(s).String(), func() *Handle {
		return &Handle{fetcher: f, coll: coll, scope: s, key: coll.Key(s)}
	})
	return
}
