package main

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

type InitCfg struct{}

type Config struct {
	InitCfgCmd *InitCfg      `arg:"subcommand:initcfg" json:"-" help:"write the configuration file and exit"`
	Profile    string        `arg:"-p,--profile" json:"-" default:"groupwatch" help:"profile name, the configuration lives in ~/<profile>/config.json"`
	Relay      string        `arg:"-r,--relay" json:"relay" help:"group relay to watch"`
	General    []string      `arg:"-g,--general,separate" json:"general,omitempty" help:"general purpose relays"`
	Groups     []string      `arg:"--group,separate" json:"groups,omitempty" help:"group ids to watch, every group on the relay when empty"`
	Listen     string        `arg:"-l,--listen" default:"127.0.0.1:9329" json:"listen" help:"network address to serve metrics on"`
	Rescan     time.Duration `arg:"--rescan" default:"5m" json:"rescan" help:"interval between group list refreshes"`
	LogLevel   string        `arg:"--loglevel" default:"info" json:"-" help:"set log level [off,fatal,error,warn,info,debug,trace]"`
}

func (c *Config) Save(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot save nil watcher config")
		log.E.Ln(err)
		return
	}
	var b []byte
	if b, err = json.MarshalIndent(c, "", "    "); chk.E(err) {
		return
	}
	if err = os.WriteFile(filename, b, 0600); chk.E(err) {
		return
	}
	return
}

func (c *Config) Load(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot load into nil config")
		chk.E(err)
		return
	}
	var b []byte
	if b, err = os.ReadFile(filename); chk.E(err) {
		return
	}
	if err = json.Unmarshal(b, c); chk.E(err) {
		return
	}
	return
}
