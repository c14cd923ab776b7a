package zap

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relaychat/pkg/signer"
)

var (
	ErrAmount = errors.New("zap amount must be positive")
	ErrTarget = errors.New("zap target needs an event id and author")
)

// RequestParams describe a zap of an event.
type RequestParams struct {
	EventID string
	Author  string
	Sats    int64
	Comment string
}

// Composer builds signed zap requests.
type Composer struct {
	signer    signer.Signer
	relayHint func() string
	// Now stamps created_at.
	Now func() nostr.Timestamp
}

// NewComposer creates a Composer. relayHint returns the relay receipts should
// be published to.
func NewComposer(s signer.Signer, relayHint func() string) *Composer {
	return &Composer{signer: s, relayHint: relayHint, Now: nostr.Now}
}

// Request returns a signed zap request for p. When signing fails nothing is
// returned.
func (c *Composer) Request(ctx context.Context, p RequestParams) (ev *nostr.Event, err error) {
	if p.Sats <= 0 {
		return nil, ErrAmount
	}
	if p.EventID == "" || p.Author == "" {
		return nil, ErrTarget
	}
	ev = &nostr.Event{
		Kind:      kind.ZapRequest.ToInt(),
		CreatedAt: c.Now(),
		Content:   p.Comment,
		Tags: tag.Build(
			tag.Relays{URLs: []string{c.relayHint()}},
			tag.Amount{Millisats: p.Sats * 1000},
			tag.Pubkey{Key: p.Author},
			tag.Ref{EventID: p.EventID},
		),
	}
	if err = c.signer.Sign(ctx, ev); err != nil {
		return nil, fmt.Errorf("signing zap request: %w", err)
	}
	log.D.F("zap request %s for %d sats to %s", ev.ID, p.Sats, p.EventID)
	return
}
