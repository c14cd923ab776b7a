package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/puzpuzpuz/xsync/v2"
)

// Transport is the relay wire collaborator: one bounded query or publish
// against one relay.
type Transport interface {
	// Query returns the stored events matching filters, ending at EOSE or
	// when ctx is done.
	Query(c context.Context, url string, filters nostr.Filters) ([]*nostr.Event, error)
	// Publish sends ev and waits for the relay's OK.
	Publish(c context.Context, url string, ev *nostr.Event) error
}

const connectTimeout = 15 * time.Second

// Relays is a Transport over websocket relay connections that are opened on
// first use and kept for the life of the pool context.
type Relays struct {
	Relays  *xsync.MapOf[string, *nostr.Relay]
	Context context.Context

	locks  *xsync.MapOf[string, *sync.Mutex]
	cancel context.CancelFunc
}

var _ Transport = (*Relays)(nil)

// NewRelays creates an empty connection set bound to c.
func NewRelays(c context.Context) *Relays {
	c, cancel := context.WithCancel(c)
	return &Relays{
		Relays:  xsync.NewMapOf[*nostr.Relay](),
		Context: c,
		locks:   xsync.NewMapOf[*sync.Mutex](),
		cancel:  cancel,
	}
}

func (r *Relays) lock(nm string) (unlock func()) {
	mx, _ := r.locks.LoadOrStore(nm, &sync.Mutex{})
	mx.Lock()
	return mx.Unlock
}

// EnsureRelay returns a connected relay, dialling it if needed.
func (r *Relays) EnsureRelay(url string) (rl *nostr.Relay, err error) {
	nm := nostr.NormalizeURL(url)
	defer r.lock(nm)()
	var ok bool
	if rl, ok = r.Relays.Load(nm); ok && rl.IsConnected() {
		return rl, nil
	}
	// the relay lives as long as the pool context, the dial gets a timeout
	rl = nostr.NewRelay(r.Context, nm)
	c, cancel := context.WithTimeout(r.Context, connectTimeout)
	defer cancel()
	if err = rl.Connect(c); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", nm, err)
	}
	log.D.F("connected to %s", nm)
	r.Relays.Store(nm, rl)
	return rl, nil
}

// Query subscribes with filters and collects events until EOSE.
func (r *Relays) Query(c context.Context, url string,
	filters nostr.Filters) (evs []*nostr.Event, err error) {

	var rl *nostr.Relay
	if rl, err = r.EnsureRelay(url); err != nil {
		return
	}
	var sub *nostr.Subscription
	if sub, err = rl.Subscribe(c, filters); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", url, err)
	}
	defer sub.Unsub()
	for {
		select {
		case ev, more := <-sub.Events:
			if !more {
				return evs, nil
			}
			evs = append(evs, ev)
		case <-sub.EndOfStoredEvents:
			return evs, nil
		case reason := <-sub.ClosedReason:
			return evs, fmt.Errorf("CLOSED from %s: '%s'", url, reason)
		case <-c.Done():
			return evs, c.Err()
		}
	}
}

// Publish sends ev to the relay.
func (r *Relays) Publish(c context.Context, url string, ev *nostr.Event) (err error) {
	var rl *nostr.Relay
	if rl, err = r.EnsureRelay(url); err != nil {
		return
	}
	if err = rl.Publish(c, *ev); err != nil {
		return fmt.Errorf("publishing to %s: %w", url, err)
	}
	return
}

// Close disconnects every relay and stops the pool context.
func (r *Relays) Close() {
	r.Relays.Range(func(url string, rl *nostr.Relay) bool {
		chk.D(rl.Close())
		r.Relays.Delete(url)
		return true
	})
	r.cancel()
}
