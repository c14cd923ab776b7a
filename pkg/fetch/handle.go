package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Handle is one collection bound to a scope. Its fetches are serialised, its
// pages live in the Registry.
type Handle struct {
	fetcher *Fetcher
	coll    Collection
	scope   Scope
	key     Key
	mx      sync.Mutex
}

// Key returns the registry key of the handle.
func (h *Handle) Key() Key { return h.key }

// Collection returns the collection definition of the handle.
func (h *Handle) Collection() Collection { return h.coll }

// Pages returns the cached pages, nil when nothing is cached.
func (h *Handle) Pages() []Page {
	pages, _ := Load[[]Page](h.fetcher.registry, h.key)
	return pages
}

// Load returns the cached pages, fetching the first page if nothing is cached.
func (h *Handle) Load(c context.Context) []Page {
	h.mx.Lock()
	defer h.mx.Unlock()
	return h.load(c)
}

func (h *Handle) load(c context.Context) []Page {
	if pages, ok := Load[[]Page](h.fetcher.registry, h.key); ok {
		return pages
	}
	tok := h.fetcher.registry.Begin(h.key)
	pages := []Page{h.fetcher.Page(c, h.coll, h.scope, nil)}
	if !h.fetcher.registry.Commit(tok, pages) {
		return nil
	}
	return pages
}

// Next fetches the page after the last cached one. When nothing is cached it
// fetches the first page instead. ok is false when the collection is
// exhausted or the result went stale in flight.
func (h *Handle) Next(c context.Context) (p Page, ok bool) {
	h.mx.Lock()
	defer h.mx.Unlock()
	pages, cached := Load[[]Page](h.fetcher.registry, h.key)
	if !cached || len(pages) == 0 {
		if pages = h.load(c); len(pages) == 0 {
			return
		}
		return pages[0], true
	}
	last := pages[len(pages)-1]
	if last.Cursor == nil {
		return
	}
	tok := h.fetcher.registry.Begin(h.key)
	p = h.fetcher.After(c, h.coll, h.scope, last)
	next := make([]Page, len(pages), len(pages)+1)
	copy(next, pages)
	if !h.fetcher.registry.Commit(tok, append(next, p)) {
		return Page{}, false
	}
	return p, true
}

// Refresh re-fetches the first page. Deeper cached pages are kept as they are.
func (h *Handle) Refresh(c context.Context) {
	h.mx.Lock()
	defer h.mx.Unlock()
	pages, _ := Load[[]Page](h.fetcher.registry, h.key)
	tok := h.fetcher.registry.Begin(h.key)
	first := h.fetcher.Page(c, h.coll, h.scope, nil)
	next := make([]Page, len(pages))
	copy(next, pages)
	if len(next) == 0 {
		next = []Page{first}
	} else {
		next[0] = first
	}
	h.fetcher.registry.Commit(tok, next)
}

// HasNext reports whether the last cached page has a cursor.
func (h *Handle) HasNext() bool {
	pages := h.Pages()
	return len(pages) > 0 && pages[len(pages)-1].Cursor != nil
}

// Items flattens the cached pages in page order, dropping repeated ids.
func (h *Handle) Items() (evs []*nostr.Event) {
	seen := make(map[string]struct{})
	for _, p := range h.Pages() {
		for _, ev := range p.Items {
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			seen[ev.ID] = struct{}{}
			evs = append(evs, ev)
		}
	}
	return
}

// Watch refreshes the first page every Refresh interval until c is done.
func (h *Handle) Watch(c context.Context) {
	interval := h.coll.Refresh
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			log.T.F("refreshing %s", h.key)
			h.Refresh(c)
		}
	}
}
