package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/nbd-wtf/go-nostr"
	"github.com/urfave/cli/v2"

	"github.com/Hubmakerlabs/relaychat/pkg/client"
	"github.com/Hubmakerlabs/relaychat/pkg/compose"
	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/group"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/codec"
	"github.com/Hubmakerlabs/relaychat/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relaychat/pkg/signer"
	"github.com/Hubmakerlabs/relaychat/pkg/zap"
)

var errNoRelay = errors.New("no group relay selected, use the relay command or --relay")

func config(cCtx *cli.Context) *C { return cCtx.App.Metadata["config"].(*C) }

func connect(cCtx *cli.Context) (cl *client.Client, err error) {
	cfg := config(cCtx)
	if cfg.Relay == "" {
		return nil, errNoRelay
	}
	return client.Connect(cCtx.Context, clientConfig(cfg), cfg.PrivateKey)
}

func groupID(cCtx *cli.Context) string {
	if g := cCtx.String("g"); g != "" {
		return g
	}
	if g := config(cCtx).Group; g != "" {
		return g
	}
	return group.DefaultID
}

// content takes the note text from the arguments or, with --stdin, from
// standard input.
func content(cCtx *cli.Context) (string, error) {
	if cCtx.Bool("stdin") {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	text := strings.Join(cCtx.Args().Slice(), " ")
	if text == "" {
		return "", errors.New("nothing to post")
	}
	return text, nil
}

// target resolves an event identifier to a reply target, fetching the event
// for its author and kind when the identifier does not carry them.
func target(c context.Context, cl *client.Client, s string) (t compose.Target, err error) {
	var p nostr.EventPointer
	if p, err = codec.DecodeEvent(s); err != nil {
		return
	}
	t = compose.Target{EventID: p.ID, Author: p.Author}
	if len(p.Relays) > 0 {
		t.Relay = p.Relays[0]
	}
	evs, err := cl.Pool.Query(c, nostr.Filters{{IDs: []string{p.ID}, Limit: 1}})
	if err != nil || len(evs) == 0 {
		log.D.F("event %s not found, using the identifier alone", p.ID)
		return t, nil
	}
	t.Author = evs[0].PubKey
	t.Kind = kind.T(evs[0].Kind)
	return
}

// pages loads the first page of h and then n-1 more while there are any.
func pages(c context.Context, h *fetch.Handle, n int) []*nostr.Event {
	h.Load(c)
	for i := 1; i < n && h.HasNext(); i++ {
		if _, ok := h.Next(c); !ok {
			break
		}
	}
	return h.Items()
}

func printJSON(evs []*nostr.Event) {
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range evs {
		chk.D(enc.Encode(ev))
	}
}

func Groups(cCtx *cli.Context) (err error) {
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	for _, g := range cl.Groups.List(cCtx.Context) {
		printGroup(g)
		if cCtx.Bool("members") {
			for _, pk := range cl.Groups.Members(cCtx.Context, g.ID) {
				fmt.Println("    ", pk)
			}
		}
	}
	return
}

func Messages(cCtx *cli.Context) (err error) {
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	id := groupID(cCtx)
	h := cl.Messages(id)
	if cCtx.Bool("chat") {
		h = cl.Chats(id)
	}
	evs := pages(cCtx.Context, h, cCtx.Int("pages"))
	if cCtx.Bool("json") {
		printJSON(evs)
		return
	}
	printFeed(evs)
	return
}

func Threads(cCtx *cli.Context) (err error) {
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	evs := pages(cCtx.Context, cl.Threads(groupID(cCtx)), cCtx.Int("pages"))
	if cCtx.Bool("json") {
		printJSON(evs)
		return
	}
	for _, ev := range evs {
		link, _ := cl.ThreadLink(ev)
		printThread(ev, link)
	}
	return
}

func Comments(cCtx *cli.Context) (err error) {
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	var p nostr.EventPointer
	if p, err = codec.DecodeEvent(cCtx.String("id")); err != nil {
		return
	}
	evs := pages(cCtx.Context, cl.Comments(groupID(cCtx), p.ID), cCtx.Int("pages"))
	if cCtx.Bool("json") {
		printJSON(evs)
		return
	}
	printFeed(evs)
	return
}

func Post(cCtx *cli.Context) (err error) {
	var text string
	if text, err = content(cCtx); err != nil {
		return
	}
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	var cmp *compose.Composer
	if cmp, err = cl.Composer(); err != nil {
		return
	}
	m := compose.Message{Group: groupID(cCtx), Content: text}
	if cCtx.Bool("legacy") {
		m.Type = compose.Legacy
	}
	if r := cCtx.String("reply"); r != "" {
		var t compose.Target
		if t, err = target(cCtx.Context, cl, r); err != nil {
			return
		}
		m.ReplyTo = &t
	}
	var sent *compose.Sent
	if sent, err = cmp.SendMessage(cCtx.Context, m); err != nil {
		return
	}
	printSent(sent)
	return
}

func NewThread(cCtx *cli.Context) (err error) {
	var text string
	if text, err = content(cCtx); err != nil {
		return
	}
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	var cmp *compose.Composer
	if cmp, err = cl.Composer(); err != nil {
		return
	}
	var sent *compose.Sent
	if sent, err = cmp.CreateThread(cCtx.Context, compose.Thread{
		Group:   groupID(cCtx),
		Title:   cCtx.String("title"),
		Content: text,
	}); err != nil {
		return
	}
	printSent(sent)
	if link, e := cl.ThreadLink(sent.Event); e == nil {
		fmt.Println(link)
	}
	return
}

func NewComment(cCtx *cli.Context) (err error) {
	var text string
	if text, err = content(cCtx); err != nil {
		return
	}
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	var cmp *compose.Composer
	if cmp, err = cl.Composer(); err != nil {
		return
	}
	cm := compose.Comment{Group: groupID(cCtx), Content: text}
	if cm.Thread, err = target(cCtx.Context, cl, cCtx.String("id")); err != nil {
		return
	}
	if cm.Thread.Kind == 0 {
		cm.Thread.Kind = kind.Thread
	}
	if p := cCtx.String("parent"); p != "" {
		var t compose.Target
		if t, err = target(cCtx.Context, cl, p); err != nil {
			return
		}
		cm.Parent = &t
	}
	var sent *compose.Sent
	if sent, err = cmp.SendComment(cCtx.Context, cm); err != nil {
		return
	}
	printSent(sent)
	return
}

func Zaps(cCtx *cli.Context) (err error) {
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	var p nostr.EventPointer
	if p, err = codec.DecodeEvent(cCtx.String("id")); err != nil {
		return
	}
	printSummary(p.ID, cl.ZapSummary(cCtx.Context, p.ID))
	return
}

func Zap(cCtx *cli.Context) (err error) {
	var cl *client.Client
	if cl, err = connect(cCtx); err != nil {
		return
	}
	defer cl.Close()
	var zc *zap.Composer
	if zc, err = cl.Zaps(); err != nil {
		return
	}
	var t compose.Target
	if t, err = target(cCtx.Context, cl, cCtx.String("id")); err != nil {
		return
	}
	var ev *nostr.Event
	if ev, err = zc.Request(cCtx.Context, zap.RequestParams{
		EventID: t.EventID,
		Author:  t.Author,
		Sats:    cCtx.Int64("sats"),
		Comment: cCtx.String("comment"),
	}); err != nil {
		return
	}
	printJSON([]*nostr.Event{ev})
	return
}

func Link(cCtx *cli.Context) (err error) {
	cfg := config(cCtx)
	var p nostr.EventPointer
	if p, err = codec.DecodeEvent(cCtx.String("id")); err != nil {
		return
	}
	cl := client.New(clientConfig(cfg), nil, nil)
	var link string
	if link, err = cl.ThreadLink(&nostr.Event{ID: p.ID, PubKey: p.Author}); err != nil {
		return
	}
	fmt.Println(link)
	if cCtx.Bool("qr") {
		qrterminal.GenerateWithConfig(link, qrterminal.Config{
			Level:     qrterminal.L,
			Writer:    os.Stdout,
			WhiteChar: qrterminal.WHITE,
			BlackChar: qrterminal.BLACK,
			QuietZone: 2,
		})
	}
	return
}

func SelectRelay(cCtx *cli.Context) (err error) {
	cfg := config(cCtx)
	url := cCtx.Args().First()
	if url == "" {
		if cfg.Relay == "" {
			return errNoRelay
		}
		fmt.Println(cfg.Relay)
		return
	}
	cl := client.New(clientConfig(cfg), nil, nil)
	cl.SelectRelay(url)
	cfg.Relay = cl.Selection.Relay()
	return saveConfig(cfg)
}

func Keygen(cCtx *cli.Context) (err error) {
	cfg := config(cCtx)
	if cfg.PrivateKey != "" {
		return errors.New("profile already has a key")
	}
	k := signer.Generate()
	if cfg.PrivateKey, err = k.Nsec(); err != nil {
		return
	}
	if err = saveConfig(cfg); err != nil {
		return
	}
	var npub string
	if npub, err = k.Npub(); err != nil {
		return
	}
	fmt.Println(npub)
	return
}
