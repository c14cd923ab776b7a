// Package pooltest provides an in-memory pool.Transport that answers filters
// from stored events the way a relay does: newest first, limited per filter.
package pooltest

import (
	"context"
	"sort"
	"sync"

	"github.com/nbd-wtf/go-nostr"
)

// Call records one request made through the transport.
type Call struct {
	URL     string
	Filters nostr.Filters
	Event   *nostr.Event
}

// Relays is a set of in-memory relays keyed by URL.
type Relays struct {
	mx        sync.Mutex
	stored    map[string][]*nostr.Event
	fail      map[string]error
	reject    map[string]error
	hold      map[string]chan struct{}
	queries   []Call
	published []Call
}

// New returns an empty relay set.
func New() *Relays {
	return &Relays{
		stored: make(map[string][]*nostr.Event),
		fail:   make(map[string]error),
		reject: make(map[string]error),
		hold:   make(map[string]chan struct{}),
	}
}

// Store adds events to the relay at url.
func (r *Relays) Store(url string, evs ...*nostr.Event) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.stored[url] = append(r.stored[url], evs...)
}

// Delete removes the events with the given ids from the relay at url.
func (r *Relays) Delete(url string, ids ...string) {
	r.mx.Lock()
	defer r.mx.Unlock()
	kept := r.stored[url][:0]
	for _, ev := range r.stored[url] {
		drop := false
		for _, id := range ids {
			drop = drop || ev.ID == id
		}
		if !drop {
			kept = append(kept, ev)
		}
	}
	r.stored[url] = kept
}

// Events returns the events held by the relay at url.
func (r *Relays) Events(url string) []*nostr.Event {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]*nostr.Event{}, r.stored[url]...)
}

// Fail makes queries to url return err. A nil err clears the failure.
func (r *Relays) Fail(url string, err error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if err == nil {
		delete(r.fail, url)
		return
	}
	r.fail[url] = err
}

// Reject makes publishes to url return err. A nil err clears it.
func (r *Relays) Reject(url string, err error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if err == nil {
		delete(r.reject, url)
		return
	}
	r.reject[url] = err
}

// Hold blocks queries to url until release is called or the query context is
// done.
func (r *Relays) Hold(url string) (release func()) {
	r.mx.Lock()
	defer r.mx.Unlock()
	ch := make(chan struct{})
	r.hold[url] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mx.Lock()
			if r.hold[url] == ch {
				delete(r.hold, url)
			}
			r.mx.Unlock()
			close(ch)
		})
	}
}

// Queries returns every query made so far.
func (r *Relays) Queries() []Call {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]Call{}, r.queries...)
}

// Published returns every publish attempt made so far.
func (r *Relays) Published() []Call {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]Call{}, r.published...)
}

// Reset forgets recorded calls, stored events are kept.
func (r *Relays) Reset() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.queries, r.published = nil, nil
}

// Query answers each filter from the stored events.
func (r *Relays) Query(c context.Context, url string, filters nostr.Filters) (evs []*nostr.Event, err error) {
	r.mx.Lock()
	r.queries = append(r.queries, Call{URL: url, Filters: filters})
	hold := r.hold[url]
	r.mx.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-c.Done():
			return nil, c.Err()
		}
	}
	if err = c.Err(); err != nil {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	if err = r.fail[url]; err != nil {
		return nil, err
	}
	stored := append([]*nostr.Event{}, r.stored[url]...)
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].CreatedAt > stored[j].CreatedAt
	})
	seen := make(map[string]struct{})
	for _, f := range filters {
		var n int
		for _, ev := range stored {
			if f.Limit > 0 && n >= f.Limit {
				break
			}
			if !f.Matches(ev) {
				continue
			}
			n++
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			seen[ev.ID] = struct{}{}
			evs = append(evs, ev)
		}
	}
	return
}

// Publish stores ev on the relay unless it was set to reject.
func (r *Relays) Publish(c context.Context, url string, ev *nostr.Event) (err error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.published = append(r.published, Call{URL: url, Event: ev})
	if err = c.Err(); err != nil {
		return
	}
	if err = r.reject[url]; err != nil {
		return
	}
	r.stored[url] = append(r.stored[url], ev)
	return
}
