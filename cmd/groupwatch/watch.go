package main

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Hubmakerlabs/relaychat/pkg/client"
	"github.com/Hubmakerlabs/relaychat/pkg/fetch"
	"github.com/Hubmakerlabs/relaychat/pkg/group"
)

// Watcher keeps the first pages of the watched groups' collections fresh.
type Watcher struct {
	client *client.Client
	fixed  []string
	rescan time.Duration

	mx      sync.Mutex
	running map[string]context.CancelFunc
}

// NewWatcher watches groups, or every group the relay lists when groups is
// empty.
func NewWatcher(cl *client.Client, groups []string, rescan time.Duration) *Watcher {
	return &Watcher{
		client:  cl,
		fixed:   groups,
		rescan:  rescan,
		running: make(map[string]context.CancelFunc),
	}
}

func (w *Watcher) handles(id string) []*fetch.Handle {
	return []*fetch.Handle{
		w.client.Chats(id),
		w.client.Messages(id),
		w.client.Threads(id),
	}
}

// wanted returns the group ids to watch. ok is false when the group list
// could not be fetched.
func (w *Watcher) wanted(c context.Context) (ids []string, ok bool) {
	if len(w.fixed) > 0 {
		return w.fixed, true
	}
	w.client.Registry.Invalidate(group.ListKey())
	groups, err := w.client.Groups.Fetch(c)
	if err != nil {
		log.W.F("group list unavailable, keeping %d watched groups: %v",
			len(w.Groups()), err)
		return nil, false
	}
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, true
}

// Sync starts watchers for newly listed groups and stops those of groups
// that are gone. A failed listing leaves the running watchers alone.
func (w *Watcher) Sync(c context.Context) {
	ids, ok := w.wanted(c)
	if !ok {
		return
	}
	started := make(map[string]context.Context)
	w.mx.Lock()
	for id, cancel := range w.running {
		if !slices.Contains(ids, id) {
			log.I.F("group %s is gone, stopping", id)
			cancel()
			delete(w.running, id)
		}
	}
	for _, id := range ids {
		if _, ok := w.running[id]; ok {
			continue
		}
		gc, cancel := context.WithCancel(c)
		w.running[id] = cancel
		started[id] = gc
	}
	w.mx.Unlock()
	for id, gc := range started {
		log.I.F("watching group %s", id)
		for _, h := range w.handles(id) {
			h.Load(gc)
			go h.Watch(gc)
		}
	}
}

// Groups returns the ids being watched, sorted.
func (w *Watcher) Groups() (ids []string) {
	w.mx.Lock()
	defer w.mx.Unlock()
	ids = maps.Keys(w.running)
	slices.Sort(ids)
	return
}

// Run syncs the watched groups every rescan interval until c is done.
func (w *Watcher) Run(c context.Context) {
	w.Sync(c)
	if w.rescan <= 0 || len(w.fixed) > 0 {
		<-c.Done()
		return
	}
	ticker := time.NewTicker(w.rescan)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			w.Sync(c)
		}
	}
}
