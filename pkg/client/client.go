// Package client wires the router, pool, fetcher, group directory and
// composers together behind one relay selection.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/compose"
	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/group"
	l "github.com/Hubmakerlabs/relaychat/pkg/log"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/codec"
	"github.com/Hubmakerlabs/relaychat/pkg/pool"
	"github.com/Hubmakerlabs/relaychat/pkg/router"
	"github.com/Hubmakerlabs/relaychat/pkg/signer"
	"github.com/Hubmakerlabs/relaychat/pkg/zap"
)

var log, chk = l.GetStd()

// ErrReadOnly is returned for writes when the client has no signer.
var ErrReadOnly = errors.New("no signer configured")

type Config struct {
	// Relay is the group relay selected at start.
	Relay string
	// General are the general purpose relays, router.DefaultGeneralRelays
	// when empty.
	General []string
	// Preferred are the user's own relays, added to publish destinations.
	Preferred []string
}

type Client struct {
	Selection *router.Selection
	Router    *router.Router
	Pool      *pool.Pool
	Metrics   *fetch.Metrics
	Registry  *fetch.Registry
	Fetcher   *fetch.Fetcher
	Groups    *group.Directory

	signer   signer.Signer
	composer *compose.Composer
	zaps     *zap.Composer
	closer   func()
	selectMx sync.Mutex
}

// New builds a client over transport t. s may be nil for a read only client.
func New(cfg Config, t pool.Transport, s signer.Signer) (cl *Client) {
	sel := router.NewSelection(cfg.Relay)
	cl = &Client{
		Selection: sel,
		Router:    router.New(sel, cfg.General...),
		Metrics:   fetch.NewMetrics(),
		signer:    s,
	}
	cl.Pool = pool.New(cl.Router, t, cfg.Preferred...)
	cl.Registry = fetch.NewRegistry(sel, cl.Metrics)
	cl.Fetcher = fetch.New(cl.Pool, cl.Registry, cl.Metrics)
	cl.Groups = group.NewDirectory(cl.Pool, cl.Registry)
	if s != nil {
		cl.composer = compose.New(cl.Pool, cl.Pool, cl.Registry, s)
		cl.zaps = zap.NewComposer(s, sel.Relay)
	}
	return
}

// Connect builds a client over websocket relays. secretKey may be empty for a
// read only client.
func Connect(c context.Context, cfg Config, secretKey string) (cl *Client, err error) {
	var s signer.Signer
	if secretKey != "" {
		var k *signer.Key
		if k, err = signer.NewKey(secretKey); err != nil {
			return
		}
		s = k
	}
	relays := pool.NewRelays(c)
	cl = New(cfg, relays, s)
	cl.closer = relays.Close
	return
}

// Close disconnects from every relay.
func (cl *Client) Close() {
	if cl.closer != nil {
		cl.closer()
	}
}

// Signer returns the client's signer, nil when read only.
func (cl *Client) Signer() signer.Signer { return cl.signer }

// SelectRelay switches the group relay and drops every cached collection.
// Fetches in flight under the old relay are discarded.
func (cl *Client) SelectRelay(url string) (version uint64) {
	cl.selectMx.Lock()
	defer cl.selectMx.Unlock()
	version = cl.Selection.Select(url)
	cl.Registry.InvalidateAll()
	log.I.F("selected relay %s (version %d)", url, version)
	return
}

// Composer returns the message composer, or ErrReadOnly.
func (cl *Client) Composer() (*compose.Composer, error) {
	if cl.composer == nil {
		return nil, ErrReadOnly
	}
	return cl.composer, nil
}

// Zaps returns the zap request composer, or ErrReadOnly.
func (cl *Client) Zaps() (*zap.Composer, error) {
	if cl.zaps == nil {
		return nil, ErrReadOnly
	}
	return cl.zaps, nil
}

func (cl *Client) Chats(groupID string) *fetch.Handle {
	return cl.Fetcher.Handle(fetch.Chats, fetch.Scope{Group: groupID})
}

func (cl *Client) Messages(groupID string) *fetch.Handle {
	return cl.Fetcher.Handle(fetch.Messages, fetch.Scope{Group: groupID})
}

func (cl *Client) Threads(groupID string) *fetch.Handle {
	return cl.Fetcher.Handle(fetch.Threads, fetch.Scope{Group: groupID})
}

func (cl *Client) Comments(groupID, threadID string) *fetch.Handle {
	return cl.Fetcher.Handle(fetch.Comments, fetch.Scope{Group: groupID, Thread: threadID})
}

func (cl *Client) ZapReceipts(eventID string) *fetch.Handle {
	return cl.Fetcher.Handle(fetch.Zaps, fetch.Scope{Event: eventID})
}

// ZapSummary loads the zap receipts of an event and reconciles them.
func (cl *Client) ZapSummary(c context.Context, eventID string) zap.Summary {
	h := cl.ZapReceipts(eventID)
	h.Load(c)
	return zap.Reconcile(eventID, h.Items())
}

// ThreadLink returns the nostr: link of a thread post with the selected relay
// as hint.
func (cl *Client) ThreadLink(thread *nostr.Event) (string, error) {
	p := nostr.EventPointer{ID: thread.ID, Author: thread.PubKey}
	if rl := cl.Selection.Relay(); rl != "" {
		p.Relays = []string{rl}
	}
	nevent, err := codec.EncodeEvent(p)
	if err != nil {
		return "", err
	}
	return codec.URIScheme + nevent, nil
}
