package fetch

import (
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v2"

	"github.com/Hubmakerlabs/relaychat/pkg/router"
)

// Scope identifies the slice of a collection being fetched. Only the fields a
// collection uses are set.
type Scope struct {
	Group  string
	Thread string
	Event  string
}

// Key names one cached collection result.
type Key struct {
	Name  string
	Scope Scope
}

func (k Key) String() string {
	return strings.Join([]string{k.Name, k.Scope.Group, k.Scope.Thread, k.Scope.Event}, "|")
}

type entry struct {
	key     Key
	gen     uint64
	epoch   uint64
	version uint64
	value   any
	set     bool
}

// Token is taken before a fetch starts and must still be current when the
// result is committed, otherwise the result is discarded.
type Token struct {
	key     Key
	gen     uint64
	epoch   uint64
	version uint64
}

// Registry is the central cache of collection results. Entries are stamped
// with the relay selection version they were fetched under and are only ever
// removed through Invalidate and InvalidateAll.
type Registry struct {
	selection *router.Selection
	entries   *xsync.MapOf[string, *entry]
	epoch     atomic.Uint64
	metrics   *Metrics
}

// NewRegistry creates an empty registry that checks entries against sel.
func NewRegistry(sel *router.Selection, m *Metrics) *Registry {
	return &Registry{
		selection: sel,
		entries:   xsync.NewMapOf[*entry](),
		metrics:   m,
	}
}

// Selection returns the relay selection handle entries are checked against.
func (r *Registry) Selection() *router.Selection { return r.selection }

func (r *Registry) valid(e *entry) bool {
	return e != nil && e.set && e.epoch == r.epoch.Load() &&
		e.version == r.selection.Version()
}

// Get returns the cached value for k if there is one that is still current.
func (r *Registry) Get(k Key) (v any, ok bool) {
	e, found := r.entries.Load(k.String())
	if !found || !r.valid(e) {
		return nil, false
	}
	return e.value, true
}

// Load is Get with the value asserted to V.
func Load[V any](r *Registry, k Key) (v V, ok bool) {
	var a any
	if a, ok = r.Get(k); !ok {
		return
	}
	v, ok = a.(V)
	return
}

// Begin snapshots the state of k for a fetch that is about to start.
func (r *Registry) Begin(k Key) (t Token) {
	t = Token{key: k, epoch: r.epoch.Load(), version: r.selection.Version()}
	if e, ok := r.entries.Load(k.String()); ok {
		t.gen = e.gen
	}
	return
}

// Commit stores v for the key of t, unless the key was invalidated or the
// selection changed since t was taken. It reports whether v was stored.
func (r *Registry) Commit(t Token, v any) (stored bool) {
	r.entries.Compute(t.key.String(), func(old *entry, loaded bool) (*entry, bool) {
		var gen uint64
		if loaded {
			gen = old.gen
		}
		if gen != t.gen || t.epoch != r.epoch.Load() ||
			t.version != r.selection.Version() {
			return old, !loaded
		}
		stored = true
		return &entry{
			key:     t.key,
			gen:     gen,
			epoch:   t.epoch,
			version: t.version,
			value:   v,
			set:     true,
		}, false
	})
	if !stored {
		log.D.F("discarding stale result for %s", t.key)
		r.metrics.stale(t.key.Name)
	}
	return
}

// Invalidate drops the cached values of keys. Fetches in flight for them are
// discarded when they complete.
func (r *Registry) Invalidate(keys ...Key) {
	for _, k := range keys {
		r.entries.Compute(k.String(), func(old *entry, loaded bool) (*entry, bool) {
			e := &entry{key: k}
			if loaded {
				e.gen = old.gen + 1
			} else {
				e.gen = 1
			}
			return e, false
		})
		log.D.F("invalidated %s", k)
		r.metrics.invalidated(k.Name)
	}
}

// InvalidateAll drops every cached value.
func (r *Registry) InvalidateAll() {
	r.epoch.Add(1)
	r.entries.Range(func(s string, e *entry) bool {
		if e.set {
			r.entries.Store(s, &entry{key: e.key, gen: e.gen + 1})
			r.metrics.invalidated(e.key.Name)
		}
		return true
	})
	log.D.Ln("invalidated all cached collections")
}

// Len returns the number of keys holding a current value.
func (r *Registry) Len() (n int) {
	r.entries.Range(func(_ string, e *entry) bool {
		if r.valid(e) {
			n++
		}
		return true
	})
	return
}
