package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Hubmakerlabs/relaychat/pkg/client"
	l "github.com/Hubmakerlabs/relaychat/pkg/log"
)

var log, chk = l.GetStd()

var (
	AppName = "groupwatch"
	Version = "v0.1.0"
)

func main() {
	var args Config
	arg.MustParse(&args)
	if !l.SetLevelString(args.LogLevel) {
		log.W.F("unknown log level %q, using %s", args.LogLevel, l.LvlStr[l.GetLogLevel()])
	}
	var dataDirBase string
	var err error
	if dataDirBase, err = os.UserHomeDir(); chk.E(err) {
		os.Exit(1)
	}
	dataDir := filepath.Join(dataDirBase, args.Profile)
	configPath := filepath.Join(dataDir, "config.json")
	if args.InitCfgCmd != nil {
		if err = os.MkdirAll(dataDir, 0700); chk.E(err) {
			os.Exit(1)
		}
		if err = args.Save(configPath); err != nil {
			os.Exit(1)
		}
		log.I.Ln("configuration written to", configPath)
		return
	}
	if _, err = os.Stat(configPath); err == nil {
		// flags given on the command line are applied again over the file
		var file Config
		if err = file.Load(configPath); err != nil {
			os.Exit(1)
		}
		merge(&file, &args)
		args = file
	} else if !errors.Is(err, fs.ErrNotExist) {
		chk.E(err)
		os.Exit(1)
	}
	if args.Relay == "" {
		log.E.Ln("no group relay configured")
		os.Exit(1)
	}
	c, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	var cl *client.Client
	if cl, err = client.Connect(c, client.Config{
		Relay:   args.Relay,
		General: args.General,
	}, ""); chk.E(err) {
		os.Exit(1)
	}
	defer cl.Close()
	reg := prometheus.NewRegistry()
	if err = cl.Metrics.Register(reg); chk.E(err) {
		os.Exit(1)
	}
	w := NewWatcher(cl, args.Groups, args.Rescan)
	go w.Run(c)
	log.I.F("%s %s watching %s", AppName, Version, args.Relay)
	if err = Serve(c, args.Listen, Handler(reg, w)); chk.E(err) {
		os.Exit(1)
	}
}

// merge copies the fields set on the command line over the loaded file.
func merge(file, flags *Config) {
	if flags.Relay != "" {
		file.Relay = flags.Relay
	}
	if len(flags.General) > 0 {
		file.General = flags.General
	}
	if len(flags.Groups) > 0 {
		file.Groups = flags.Groups
	}
	if file.Listen == "" {
		file.Listen = flags.Listen
	}
	if file.Rescan == 0 {
		file.Rescan = flags.Rescan
	}
	file.Profile = flags.Profile
	file.LogLevel = flags.LogLevel
}
