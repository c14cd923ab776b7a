// Package compose builds group chat events, publishes them and invalidates the
// cached collections they belong to once a relay has accepted them.
package compose

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relaychat/pkg/signer"
)

const (
	// TimelineWindow is how many recent events are asked for.
	TimelineWindow = 50
	// TimelineRefs is how many of them are referenced.
	TimelineRefs = 10
	// TimelineIDLength is the length ids are truncated to.
	TimelineIDLength = 8
)

// Publisher sends an event to its routed relays, pool.Pool implements it.
type Publisher interface {
	Publish(c context.Context, ev *nostr.Event) (accepted []string, err error)
}

// Target points at an existing event.
type Target struct {
	EventID string
	Relay   string
	Author  string
	Kind    kind.T
}

// Pointer returns the target as an event pointer for encoding.
func (t Target) Pointer() nostr.EventPointer {
	p := nostr.EventPointer{ID: t.EventID, Author: t.Author}
	if t.Relay != "" {
		p.Relays = []string{t.Relay}
	}
	return p
}

// Sent is the result of an accepted publish.
type Sent struct {
	Event       *nostr.Event
	Relays      []string
	Invalidated []fetch.Key
}

// Composer builds and sends events for one signer.
type Composer struct {
	querier   fetch.Querier
	publisher Publisher
	registry  *fetch.Registry
	signer    signer.Signer

	TimelineTimeout time.Duration
	PublishTimeout  time.Duration
	// Now stamps created_at.
	Now func() nostr.Timestamp
}

// New creates a Composer.
func New(q fetch.Querier, p Publisher, reg *fetch.Registry, s signer.Signer) *Composer {
	return &Composer{
		querier:         q,
		publisher:       p,
		registry:        reg,
		signer:          s,
		TimelineTimeout: 3 * time.Second,
		PublishTimeout:  10 * time.Second,
		Now:             nostr.Now,
	}
}

// RelayHint is the relay written into reference tags, the selected relay.
func (c *Composer) RelayHint() string { return c.registry.Selection().Relay() }

// Timeline returns the truncated ids of up to TimelineRefs recent events of
// the given kinds in a group, in the order the relay returned them. A failed
// query gives no ids.
func (c *Composer) Timeline(ctx context.Context, group string, kinds kind.Range) (ids []string) {
	ctx, cancel := context.WithTimeout(ctx, c.TimelineTimeout)
	defer cancel()
	evs, err := c.querier.Query(ctx, nostr.Filters{{
		Kinds: kinds.Ints(),
		Tags:  nostr.TagMap{tag.NameGroup: {group}},
		Limit: TimelineWindow,
	}})
	if err != nil {
		log.D.F("timeline query for group %s failed, sending without references: %v",
			group, err)
		return nil
	}
	for _, ev := range evs {
		if len(ids) == TimelineRefs {
			break
		}
		id := ev.ID
		if len(id) > TimelineIDLength {
			id = id[:TimelineIDLength]
		}
		ids = append(ids, id)
	}
	return
}

func (c *Composer) timelineTag(ctx context.Context, group string, kinds kind.Range) []tag.Variant {
	if ids := c.Timeline(ctx, group, kinds); len(ids) > 0 {
		return []tag.Variant{tag.Previous{IDs: ids}}
	}
	return nil
}

func (c *Composer) event(k kind.T, content string, vs ...tag.Variant) *nostr.Event {
	return &nostr.Event{
		Kind:      k.ToInt(),
		CreatedAt: c.Now(),
		Tags:      tag.Build(vs...),
		Content:   content,
	}
}

// send signs and publishes ev, then invalidates keys. Nothing is invalidated
// unless some relay accepted the event.
func (c *Composer) send(ctx context.Context, ev *nostr.Event, what string,
	keys ...fetch.Key) (s *Sent, err error) {

	if err = c.signer.Sign(ctx, ev); err != nil {
		log.E.F("failed to sign %s: %v", what, err)
		return nil, fail("Failed to sign "+what, "The event could not be signed.", err)
	}
	pc, cancel := context.WithTimeout(ctx, c.PublishTimeout)
	defer cancel()
	var relays []string
	if relays, err = c.publisher.Publish(pc, ev); err != nil {
		log.E.F("failed to send %s: %v", what, err)
		return nil, fail("Failed to send "+what, tryAgain, err)
	}
	log.D.F("%s %s accepted by %v", what, ev.ID, relays)
	c.registry.Invalidate(keys...)
	return &Sent{Event: ev, Relays: relays, Invalidated: keys}, nil
}
