// Package pool fans queries and publishes out to the relays chosen by the
// router and merges what comes back.
package pool

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/Hubmakerlabs/relaychat/pkg/router"
)

var (
	// ErrNoRoute is returned when the router produced no relay for a request.
	ErrNoRoute = errors.New("no relay to send the request to")
	// ErrRejected is returned when no relay accepted a published event.
	ErrRejected = errors.New("event was not accepted by any relay")
)

// Pool is a routed view over a Transport.
type Pool struct {
	router    *router.Router
	transport Transport
	mx        sync.Mutex
	preferred []string
}

// New creates a Pool that routes through r and talks to relays over t.
// preferred are the user's own relays, used for events that are not scoped
// to a group.
func New(r *router.Router, t Transport, preferred ...string) *Pool {
	return &Pool{router: r, transport: t, preferred: preferred}
}

// Router returns the router the pool sends requests through.
func (p *Pool) Router() *router.Router { return p.router }

// SetPreferred replaces the user's preferred relay list.
func (p *Pool) SetPreferred(urls ...string) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.preferred = append([]string{}, urls...)
}

// Preferred returns a copy of the user's preferred relay list.
func (p *Pool) Preferred() []string {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]string{}, p.preferred...)
}

// Query routes filters, queries every relay in the table concurrently and
// returns the union of the results with duplicate ids removed. Relays that fail
// are logged and skipped; an error is returned only when every relay failed.
func (p *Pool) Query(c context.Context, filters nostr.Filters) (evs []*nostr.Event, err error) {
	table := p.router.RouteQuery(filters)
	if len(table) == 0 {
		return nil, ErrNoRoute
	}
	urls := maps.Keys(table)
	sort.Strings(urls)
	results := make([][]*nostr.Event, len(urls))
	errs := make([]error, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			results[i], errs[i] = p.transport.Query(c, url, table[url])
			if errs[i] != nil {
				log.D.F("query to %s failed: %v", url, errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	seen := make(map[string]struct{})
	var failed int
	for i := range urls {
		if errs[i] != nil {
			failed++
		}
		for _, ev := range results[i] {
			if ev == nil {
				continue
			}
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			seen[ev.ID] = struct{}{}
			evs = append(evs, ev)
		}
	}
	if failed == len(urls) && len(evs) == 0 {
		return nil, errors.Join(errs...)
	}
	return
}

// Publish routes ev and sends it to every chosen relay concurrently. It
// returns the relays that accepted the event, and ErrRejected joined with
// every relay error when none did.
func (p *Pool) Publish(c context.Context, ev *nostr.Event) (accepted []string, err error) {
	urls := p.router.RoutePublish(ev, p.Preferred())
	if len(urls) == 0 {
		return nil, ErrNoRoute
	}
	errs := make([]error, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			errs[i] = p.transport.Publish(c, url, ev)
			return nil
		})
	}
	_ = g.Wait()
	for i, url := range urls {
		if errs[i] == nil {
			accepted = append(accepted, url)
			continue
		}
		log.D.F("publish of %s to %s failed: %v", ev.ID, url, errs[i])
	}
	if len(accepted) == 0 {
		return nil, errors.Join(append([]error{ErrRejected}, errs...)...)
	}
	return
}
