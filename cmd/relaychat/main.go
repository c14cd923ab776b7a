package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Hubmakerlabs/relaychat/pkg/client"
	l "github.com/Hubmakerlabs/relaychat/pkg/log"
)

var log, chk = l.GetStd()

const appName = "relaychat"

const version = "0.1.0"

var revision = "HEAD"

// C is the stored configuration of one profile.
type C struct {
	Relay      string   `json:"relay"`
	General    []string `json:"general,omitempty"`
	Preferred  []string `json:"preferred,omitempty"`
	PrivateKey string   `json:"privatekey,omitempty"`
	Group      string   `json:"group,omitempty"`

	path string
}

func configDir() (dir string, e error) {
	switch runtime.GOOS {
	case "darwin":
		if dir, e = os.UserHomeDir(); log.Fail(e) {
			return
		}
		return filepath.Join(dir, ".config"), nil
	default:
		return os.UserConfigDir()
	}
}

func configPath(profile string) (fp string, e error) {
	var dir string
	if dir, e = configDir(); log.Fail(e) {
		return
	}
	dir = filepath.Join(dir, appName)
	if profile == "" {
		return filepath.Join(dir, "config.json"), nil
	}
	return filepath.Join(dir, "config-"+profile+".json"), nil
}

func listProfiles() (names []string, e error) {
	var dir string
	if dir, e = configDir(); log.Fail(e) {
		return
	}
	var nn []string
	if nn, e = filepath.Glob(filepath.Join(dir, appName, "config-*.json")); log.Fail(e) {
		return
	}
	for _, n := range nn {
		n = filepath.Base(n)
		names = append(names, strings.TrimLeft(n[6:len(n)-5], "-"))
	}
	return
}

// loadConfig reads the profile's config file. A missing file gives an empty
// config that saveConfig will create.
func loadConfig(profile string) (cfg *C, e error) {
	var fp string
	if fp, e = configPath(profile); e != nil {
		return
	}
	if e = os.MkdirAll(filepath.Dir(fp), 0700); log.Fail(e) {
		return
	}
	cfg = &C{path: fp}
	var b []byte
	if b, e = os.ReadFile(fp); e != nil {
		if errors.Is(e, fs.ErrNotExist) {
			e = nil
		}
		return
	}
	e = json.Unmarshal(b, cfg)
	chk.E(e)
	return
}

func saveConfig(cfg *C) (e error) {
	var b []byte
	if b, e = json.MarshalIndent(cfg, "", "    "); chk.E(e) {
		return
	}
	return os.WriteFile(cfg.path, b, 0600)
}

func clientConfig(cfg *C) client.Config {
	return client.Config{
		Relay:     cfg.Relay,
		General:   cfg.General,
		Preferred: cfg.Preferred,
	}
}

func doVersion(_ *cli.Context) (e error) {
	fmt.Println(version, revision)
	return nil
}

func main() {
	app := &cli.App{
		Name:        appName,
		Usage:       "A cli for relay based group chat",
		Description: "Browse and post to the groups of a nostr group relay",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "a", Usage: "profile name, ? to list profiles"},
			&cli.StringFlag{Name: "relay", Usage: "group relay for this run"},
			&cli.BoolFlag{Name: "V", Usage: "verbose"},
		},
		Commands: []*cli.Command{
			{
				Name:    "groups",
				Aliases: []string{"g"},
				Usage:   "list the groups on the relay",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "members", Usage: "print member pubkeys"},
				},
				Action: Groups,
			},
			{
				Name:    "messages",
				Aliases: []string{"m"},
				Usage:   "show the message feed of a group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "g", Usage: "group id"},
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "number of pages"},
					&cli.BoolFlag{Name: "chat", Usage: "chat messages only"},
					&cli.BoolFlag{Name: "json", Usage: "output JSON"},
				},
				Action: Messages,
			},
			{
				Name:    "threads",
				Aliases: []string{"t"},
				Usage:   "list the threads of a group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "g", Usage: "group id"},
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "number of pages"},
					&cli.BoolFlag{Name: "json", Usage: "output JSON"},
				},
				Action: Threads,
			},
			{
				Name:    "comments",
				Aliases: []string{"c"},
				Usage:   "show the comments of a thread",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "g", Usage: "group id"},
					&cli.StringFlag{Name: "id", Required: true, Usage: "thread id or nevent"},
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "number of pages"},
					&cli.BoolFlag{Name: "json", Usage: "output JSON"},
				},
				Action: Comments,
			},
			{
				Name:    "post",
				Aliases: []string{"n"},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "g", Usage: "group id"},
					&cli.BoolFlag{Name: "stdin"},
					&cli.BoolFlag{Name: "legacy", Usage: "post a kind 1 note"},
					&cli.StringFlag{Name: "reply", Usage: "id or nevent of the replied message"},
				},
				Usage:     "post a message to a group",
				UsageText: appName + " post [message text]",
				HelpName:  "post",
				ArgsUsage: "[message text]",
				Action:    Post,
			},
			{
				Name: "thread",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "g", Usage: "group id"},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.BoolFlag{Name: "stdin"},
				},
				Usage:     "start a thread in a group",
				UsageText: appName + " thread --title [title] [thread text]",
				HelpName:  "thread",
				ArgsUsage: "[thread text]",
				Action:    NewThread,
			},
			{
				Name: "comment",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "g", Usage: "group id"},
					&cli.StringFlag{Name: "id", Required: true, Usage: "thread nevent"},
					&cli.StringFlag{Name: "parent", Usage: "nevent of the comment replied to"},
					&cli.BoolFlag{Name: "stdin"},
				},
				Usage:     "comment on a thread",
				UsageText: appName + " comment --id [nevent] [comment text]",
				HelpName:  "comment",
				ArgsUsage: "[comment text]",
				Action:    NewComment,
			},
			{
				Name:  "zaps",
				Usage: "show the zap total of an event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "event id or nevent"},
				},
				Action: Zaps,
			},
			{
				Name:  "zap",
				Usage: "sign a zap request for an event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "event nevent"},
					&cli.Int64Flag{Name: "sats", Value: 21},
					&cli.StringFlag{Name: "comment"},
				},
				Action: Zap,
			},
			{
				Name:  "link",
				Usage: "print the share link of a thread",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "thread nevent"},
					&cli.BoolFlag{Name: "qr", Usage: "also print a QR code"},
				},
				Action: Link,
			},
			{
				Name:      "relay",
				Usage:     "show or select the group relay",
				ArgsUsage: "[relay url]",
				Action:    SelectRelay,
			},
			{
				Name:   "keygen",
				Usage:  "generate a key for the profile",
				Action: Keygen,
			},
			{
				Name:   "version",
				Usage:  "show version",
				Action: doVersion,
			},
		},
		Before: func(cCtx *cli.Context) (e error) {
			if cCtx.Args().First() == "version" {
				return nil
			}
			if cCtx.Bool("V") {
				l.SetLogLevel(l.Debug)
			} else {
				l.SetLogLevel(l.Warn)
			}
			profile := cCtx.String("a")
			if profile == "?" {
				var names []string
				if names, e = listProfiles(); e != nil {
					return
				}
				for _, n := range names {
					fmt.Println(n)
				}
				os.Exit(0)
			}
			var cfg *C
			if cfg, e = loadConfig(profile); e != nil {
				return
			}
			if rl := cCtx.String("relay"); rl != "" {
				cfg.Relay = rl
			}
			cCtx.App.Metadata = map[string]any{"config": cfg}
			return
		},
	}
	if e := app.Run(os.Args); e != nil {
		fmt.Fprintln(os.Stderr, e)
		os.Exit(1)
	}
}
