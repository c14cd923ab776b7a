// Package signer is the event signing capability handed to composers.
package signer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// ErrInvalidKey is returned for secret keys that are neither 64 hex
// characters nor an nsec.
var ErrInvalidKey = errors.New("invalid secret key")

// Signer signs events on behalf of one identity.
type Signer interface {
	// PublicKey returns the hex public key events are signed with.
	PublicKey() string
	// Sign sets the pubkey, id and signature of ev.
	Sign(c context.Context, ev *nostr.Event) error
}

// Key signs with a secret key held in memory.
type Key struct {
	secret string
	public string
}

var _ Signer = (*Key)(nil)

// NewKey parses a hex or nsec secret key.
func NewKey(s string) (k *Key, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "nsec1") {
		var prefix string
		var v any
		if prefix, v, err = nip19.Decode(s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		sk, ok := v.(string)
		if prefix != "nsec" || !ok {
			return nil, ErrInvalidKey
		}
		s = sk
	}
	if b, e := hex.DecodeString(s); e != nil || len(b) != 32 {
		return nil, ErrInvalidKey
	}
	k = &Key{secret: s}
	if k.public, err = nostr.GetPublicKey(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return
}

// Generate creates a new random key.
func Generate() *Key {
	k, err := NewKey(nostr.GeneratePrivateKey())
	if err != nil {
		panic(err)
	}
	return k
}

func (k *Key) PublicKey() string { return k.public }

// Npub returns the bech32 form of the public key.
func (k *Key) Npub() (string, error) { return nip19.EncodePublicKey(k.public) }

// Nsec returns the bech32 form of the secret key.
func (k *Key) Nsec() (string, error) { return nip19.EncodePrivateKey(k.secret) }

func (k *Key) Sign(c context.Context, ev *nostr.Event) (err error) {
	if err = c.Err(); err != nil {
		return
	}
	ev.PubKey = k.public
	return ev.Sign(k.secret)
}
