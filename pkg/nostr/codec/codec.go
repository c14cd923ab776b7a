// Package codec encodes and decodes the compact bech32 identifiers used for
// thread links and in-content cross-references. Decoding failures are always
// reported as ErrDecode.
package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// URIScheme prefixes identifiers embedded in event content.
const URIScheme = "nostr:"

// ErrDecode is returned for any identifier that does not decode to an event
// pointer.
var ErrDecode = errors.New("malformed event identifier")

// EncodeEvent renders an nevent identifier carrying the event id, relay hints
// and author.
func EncodeEvent(p nostr.EventPointer) (s string, err error) {
	if !isHex32(p.ID) {
		return "", fmt.Errorf("%w: event id %q", ErrDecode, p.ID)
	}
	if s, err = nip19.EncodeEvent(p.ID, p.Relays, p.Author); err != nil {
		return "", fmt.Errorf("encoding nevent: %w", err)
	}
	return
}

// DecodeEvent accepts an nevent or note identifier, with or without the
// nostr: scheme, or a bare hex event id.
func DecodeEvent(s string) (p nostr.EventPointer, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), URIScheme)
	if isHex32(s) {
		return nostr.EventPointer{ID: s}, nil
	}
	var prefix string
	var data any
	if prefix, data, err = nip19.Decode(s); err != nil {
		return p, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	switch prefix {
	case "nevent":
		switch v := data.(type) {
		case nostr.EventPointer:
			return v, nil
		case *nostr.EventPointer:
			return *v, nil
		}
	case "note":
		if id, ok := data.(string); ok {
			return nostr.EventPointer{ID: id}, nil
		}
	}
	return p, fmt.Errorf("%w: unexpected prefix %q", ErrDecode, prefix)
}

// QuoteContent prepends the nostr: reference of the quoted event to content,
// on its own line.
func QuoteContent(quoted nostr.EventPointer, content string) (string, error) {
	nevent, err := EncodeEvent(quoted)
	if err != nil {
		return "", err
	}
	return URIScheme + nevent + "\n" + content, nil
}

func isHex32(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
