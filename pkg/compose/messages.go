package compose

import (
	"context"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/codec"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/tag"
)

// MessageType selects the event kind of a group message.
type MessageType int

const (
	Chat MessageType = iota
	Legacy
)

func (t MessageType) Kind() kind.T {
	if t == Legacy {
		return kind.TextNote
	}
	return kind.ChatMessage
}

// Message is a chat or legacy message to a group, optionally replying to
// another one.
type Message struct {
	Group   string
	Content string
	Type    MessageType
	ReplyTo *Target
}

// Thread is a new thread post.
type Thread struct {
	Group   string
	Title   string
	Content string
}

// Comment is a comment on a thread. A nil Parent makes it a top level
// comment, otherwise it replies to Parent.
type Comment struct {
	Group   string
	Thread  Target
	Content string
	Parent  *Target
}

func chatsKey(group string) fetch.Key    { return fetch.Chats.Key(fetch.Scope{Group: group}) }
func messagesKey(group string) fetch.Key { return fetch.Messages.Key(fetch.Scope{Group: group}) }
func threadsKey(group string) fetch.Key  { return fetch.Threads.Key(fetch.Scope{Group: group}) }

func commentsKey(group, thread string) fetch.Key {
	return fetch.Comments.Key(fetch.Scope{Group: group, Thread: thread})
}

// BuildMessage returns the unsigned event for m. Timeline references cover
// legacy notes as well as the chat kinds when building for the unified feed.
func (c *Composer) BuildMessage(ctx context.Context, m Message, unified bool) (ev *nostr.Event, err error) {
	if m.Group == "" {
		return nil, ErrNoGroup
	}
	timeline := kind.Timeline
	if unified {
		timeline = kind.UnifiedTimeline
	}
	vs := append([]tag.Variant{tag.Group{ID: m.Group}},
		c.timelineTag(ctx, m.Group, timeline)...)
	content := m.Content
	if r := m.ReplyTo; r != nil {
		switch m.Type {
		case Legacy:
			vs = append(vs, tag.Ref{EventID: r.EventID, Relay: r.Relay, Marker: tag.MarkerReply})
		default:
			vs = append(vs, tag.Quote{EventID: r.EventID, Relay: r.Relay, Author: r.Author})
			if content, err = codec.QuoteContent(r.Pointer(), content); err != nil {
				return nil, err
			}
		}
	}
	return c.event(m.Type.Kind(), content, vs...), nil
}

// SendMessage publishes a chat or legacy message composed from the unified
// feed. Chat messages invalidate the chats and the unified messages of the
// group, legacy ones only the unified messages.
func (c *Composer) SendMessage(ctx context.Context, m Message) (*Sent, error) {
	ev, err := c.BuildMessage(ctx, m, true)
	if err != nil {
		return nil, fail("Failed to send message", tryAgain, err)
	}
	keys := []fetch.Key{messagesKey(m.Group)}
	if m.Type == Chat {
		keys = append(keys, chatsKey(m.Group))
	}
	return c.send(ctx, ev, "message", keys...)
}

// SendChat publishes a chat message.
func (c *Composer) SendChat(ctx context.Context, group, content string, replyTo *Target) (*Sent, error) {
	m := Message{Group: group, Content: content, Type: Chat, ReplyTo: replyTo}
	ev, err := c.BuildMessage(ctx, m, false)
	if err != nil {
		return nil, fail("Failed to send message", tryAgain, err)
	}
	return c.send(ctx, ev, "message", chatsKey(group), messagesKey(group))
}

// BuildThread returns the unsigned thread post. Thread posts never carry
// reply tags.
func (c *Composer) BuildThread(ctx context.Context, t Thread) (*nostr.Event, error) {
	if t.Group == "" {
		return nil, ErrNoGroup
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, ErrMissingTitle
	}
	vs := append([]tag.Variant{tag.Group{ID: t.Group}, tag.Title{Text: t.Title}},
		c.timelineTag(ctx, t.Group, kind.Timeline)...)
	return c.event(kind.Thread, t.Content, vs...), nil
}

// CreateThread publishes a thread post and invalidates the threads and the
// unified messages of the group.
func (c *Composer) CreateThread(ctx context.Context, t Thread) (*Sent, error) {
	ev, err := c.BuildThread(ctx, t)
	if err != nil {
		return nil, fail("Failed to create thread", "A thread needs a group and a title.", err)
	}
	return c.send(ctx, ev, "thread", threadsKey(t.Group), messagesKey(t.Group))
}

// BuildComment returns the unsigned comment. The root scope is always the
// thread, the parent scope is the thread for top level comments.
func (c *Composer) BuildComment(ctx context.Context, cm Comment) (*nostr.Event, error) {
	if cm.Group == "" {
		return nil, ErrNoGroup
	}
	if cm.Thread.EventID == "" {
		return nil, ErrNoThread
	}
	relay := cm.Thread.Relay
	if relay == "" {
		relay = c.RelayHint()
	}
	parent := Target{EventID: cm.Thread.EventID, Author: cm.Thread.Author, Kind: kind.Thread}
	if cm.Parent != nil {
		parent = *cm.Parent
		if parent.Kind == 0 {
			parent.Kind = kind.Comment
		}
	}
	vs := []tag.Variant{
		tag.Group{ID: cm.Group},
		tag.RootKind{Kind: kind.Thread},
		tag.RootEvent{EventID: cm.Thread.EventID, Relay: relay, Author: cm.Thread.Author},
		tag.RootPubkey{Key: cm.Thread.Author, Relay: relay},
		tag.Ref{EventID: parent.EventID, Relay: relay, Marker: parent.Author},
		tag.ParentKind{Kind: parent.Kind},
		tag.Pubkey{Key: parent.Author, Relay: relay},
	}
	vs = append(vs, c.timelineTag(ctx, cm.Group, kind.Timeline)...)
	return c.event(kind.Comment, cm.Content, vs...), nil
}

// SendComment publishes a comment and invalidates the comments of its thread.
func (c *Composer) SendComment(ctx context.Context, cm Comment) (*Sent, error) {
	ev, err := c.BuildComment(ctx, cm)
	if err != nil {
		return nil, fail("Failed to send comment", tryAgain, err)
	}
	return c.send(ctx, ev, "comment", commentsKey(cm.Group, cm.Thread.EventID))
}
