package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/nbd-wtf/go-nostr"

	"github.com/Hubmakerlabs/relaychat/pkg/compose"
	"github.com/Hubmakerlabs/relaychat/pkg/feed"
	"github.com/Hubmakerlabs/relaychat/pkg/group"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/codec"
	"github.com/Hubmakerlabs/relaychat/pkg/validate"
	"github.com/Hubmakerlabs/relaychat/pkg/zap"
)

var (
	fgRed     = color.New(color.FgRed)
	fgBlue    = color.New(color.FgBlue)
	fgGreen   = color.New(color.FgGreen)
	fgYellow  = color.New(color.FgYellow)
	fgMagenta = color.New(color.FgMagenta)
)

func short(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func printGroup(g group.Group) {
	var flags []string
	if g.IsPublic() {
		flags = append(flags, "public")
	} else {
		flags = append(flags, "private")
	}
	if g.IsOpen() {
		flags = append(flags, "open")
	} else {
		flags = append(flags, "closed")
	}
	members := "?"
	if g.MemberCount != nil {
		members = fmt.Sprint(*g.MemberCount)
	}
	fmt.Println(fgRed.Sprint(g.ID), fgGreen.Sprint(g.Name),
		fgBlue.Sprintf("[%s] %s members", strings.Join(flags, ","), members))
	if g.About != "" {
		fmt.Println("    ", g.About)
	}
}

// printFeed prints events oldest first with a date line wherever the day
// changes.
func printFeed(evs []*nostr.Event) {
	var buffer bytes.Buffer
	for _, e := range feed.Layout(evs, time.Local) {
		if e.Separator {
			fmt.Fprintln(&buffer, fgYellow.Sprint("--- ", e.Day.Format("Monday, January 2 2006"), " ---"))
		}
		ev := e.Event
		fmt.Fprint(&buffer, fgRed.Sprint(short(ev.PubKey)), " ")
		fmt.Fprint(&buffer, fgBlue.Sprint(ev.CreatedAt.Time().Format("15:04")), " ")
		if e.Reply {
			if q := codec.QuotedEvent(ev); q != nil {
				fmt.Fprint(&buffer, fgMagenta.Sprint("re:", short(q.ID)), " ")
			} else {
				fmt.Fprint(&buffer, fgMagenta.Sprint("re"), " ")
			}
		}
		if e.Thread {
			if title, ok := validate.Title(ev); ok {
				fmt.Fprint(&buffer, fgGreen.Sprint(title), " ")
			}
		}
		fmt.Fprintln(&buffer, fgBlue.Sprint(short(ev.ID)))
		fmt.Fprintln(&buffer, ev.Content)
		fmt.Fprintln(&buffer)
	}
	fmt.Print(buffer.String())
}

func printThread(ev *nostr.Event, link string) {
	title, _ := validate.Title(ev)
	fmt.Println(fgGreen.Sprint(title), fgRed.Sprint(short(ev.PubKey)),
		fgBlue.Sprint(ev.CreatedAt.Time().Format(time.DateTime)))
	if link != "" {
		fmt.Println("    ", fgBlue.Sprint(link))
	}
}

func printSent(s *compose.Sent) {
	fmt.Println(fgGreen.Sprint("published"), s.Event.ID, "to", strings.Join(s.Relays, ", "))
}

func printSummary(id string, s zap.Summary) {
	fmt.Println(fgBlue.Sprint(short(id)), fgYellow.Sprintf("%.0f sats", s.Sats()),
		fmt.Sprintf("in %d zaps", s.Count))
}
