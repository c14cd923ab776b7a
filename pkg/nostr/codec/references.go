package codec

import (
	"regexp"
	"strconv"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// Reference is one mention found in event content.
type Reference struct {
	Text    string
	Start   int
	End     int
	Profile *nostr.ProfilePointer
	Event   *nostr.EventPointer
}

var mentionRegex = regexp.MustCompile(`\bnostr:((note|npub|nevent|nprofile)1\w+)\b|#\[(\d+)\]`)

// ParseReferences finds nostr: URIs and #[n] tag index mentions in the event
// content. Mentions that do not decode are skipped.
func ParseReferences(ev *nostr.Event) (refs []Reference) {
	content := ev.Content
	for _, r := range mentionRegex.FindAllStringSubmatchIndex(content, -1) {
		ref := Reference{Text: content[r[0]:r[1]], Start: r[0], End: r[1]}
		if r[6] == -1 {
			prefix, data, err := nip19.Decode(content[r[2]:r[3]])
			if err != nil {
				continue
			}
			switch prefix {
			case "npub":
				ref.Profile = &nostr.ProfilePointer{PublicKey: data.(string)}
			case "nprofile":
				switch v := data.(type) {
				case nostr.ProfilePointer:
					ref.Profile = &v
				case *nostr.ProfilePointer:
					ref.Profile = v
				}
			case "note":
				ref.Event = &nostr.EventPointer{ID: data.(string)}
			case "nevent":
				switch v := data.(type) {
				case nostr.EventPointer:
					ref.Event = &v
				case *nostr.EventPointer:
					ref.Event = v
				}
			}
		} else {
			idx, err := strconv.Atoi(content[r[6]:r[7]])
			if err != nil || idx >= len(ev.Tags) || len(ev.Tags[idx]) < 2 {
				continue
			}
			t := ev.Tags[idx]
			var relays []string
			if len(t) > 2 && t[2] != "" {
				relays = []string{t[2]}
			}
			switch t[0] {
			case "p":
				ref.Profile = &nostr.ProfilePointer{PublicKey: t[1], Relays: relays}
			case "e", "q":
				ref.Event = &nostr.EventPointer{ID: t[1], Relays: relays}
			}
		}
		if ref.Profile == nil && ref.Event == nil {
			continue
		}
		refs = append(refs, ref)
	}
	return
}

// QuotedEvent returns the event a chat reply quotes through the nostr:
// reference on its first line, if any.
func QuotedEvent(ev *nostr.Event) (p *nostr.EventPointer) {
	for _, ref := range ParseReferences(ev) {
		if ref.Start == 0 && ref.Event != nil {
			return ref.Event
		}
	}
	return nil
}
