package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relaychat/pkg/client"
	"github.com/Hubmakerlabs/relaychat/pkg/pool/pooltest"
)

const relay = "wss://groups.example.com"

func metadata(id string) *nostr.Event {
	ev := &nostr.Event{Kind: 39000, CreatedAt: 1, Tags: nostr.Tags{{"d", id}}}
	ev.ID = ev.GetID()
	return ev
}

func TestConfigSaveLoad(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{
		Profile: "ignored",
		Relay:   relay,
		Groups:  []string{"pizza"},
		Listen:  "127.0.0.1:0",
		Rescan:  time.Minute,
	}
	require.NoError(t, cfg.Save(fp))
	var got Config
	require.NoError(t, got.Load(fp))
	assert.Equal(t, relay, got.Relay)
	assert.Equal(t, []string{"pizza"}, got.Groups)
	assert.Equal(t, time.Minute, got.Rescan)
	assert.Empty(t, got.Profile)

	var nilCfg *Config
	assert.Error(t, nilCfg.Save(fp))
	assert.Error(t, got.Load(filepath.Join(t.TempDir(), "missing.json")))
}

func TestMergeFlagsOverFile(t *testing.T) {
	file := &Config{Relay: relay, Groups: []string{"pizza"}}
	merge(file, &Config{Relay: "wss://other.example.com", Listen: ":9000", LogLevel: "debug"})
	assert.Equal(t, "wss://other.example.com", file.Relay)
	assert.Equal(t, []string{"pizza"}, file.Groups)
	assert.Equal(t, ":9000", file.Listen)
	assert.Equal(t, "debug", file.LogLevel)
}

func newWatcher(groups ...string) (*Watcher, *pooltest.Relays, *client.Client) {
	mem := pooltest.New()
	cl := client.New(client.Config{Relay: relay, General: []string{"wss://general.example.com"}}, mem, nil)
	cl.Groups.Backoff = 0
	return NewWatcher(cl, groups, 0), mem, cl
}

func TestSyncFollowsGroupList(t *testing.T) {
	w, mem, _ := newWatcher()
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	pasta := metadata("pasta")
	mem.Store(relay, metadata("pizza"), pasta)
	w.Sync(c)
	assert.Equal(t, []string{"pasta", "pizza"}, w.Groups())

	mem.Delete(relay, pasta.ID)
	w.Sync(c)
	assert.Equal(t, []string{"pizza"}, w.Groups())
}

func TestFailedListingKeepsWatchers(t *testing.T) {
	w, mem, _ := newWatcher()
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem.Store(relay, metadata("pizza"))
	w.Sync(c)
	require.Equal(t, []string{"pizza"}, w.Groups())

	mem.Fail(relay, errors.New("connection refused"))
	w.Sync(c)
	assert.Equal(t, []string{"pizza"}, w.Groups())
}

func TestGroupsAnswersWhileLoading(t *testing.T) {
	w, mem, _ := newWatcher("pizza")
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := mem.Hold(relay)
	done := make(chan struct{})
	go func() {
		w.Sync(c)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(mem.Queries()) > 0 },
		time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return len(w.Groups()) == 1 },
		time.Second, time.Millisecond)
	release()
	<-done
}

func TestFixedGroupsSkipListing(t *testing.T) {
	w, mem, _ := newWatcher("pizza")
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Sync(c)
	assert.Equal(t, []string{"pizza"}, w.Groups())
	for _, q := range mem.Queries() {
		for _, f := range q.Filters {
			assert.NotContains(t, f.Kinds, 39000)
		}
	}
}

func TestHandler(t *testing.T) {
	w, _, cl := newWatcher("pizza")
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := prometheus.NewRegistry()
	require.NoError(t, cl.Metrics.Register(reg))
	w.Sync(c)
	srv := httptest.NewServer(Handler(reg, w))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/groups")
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ids))
	resp.Body.Close()
	assert.Equal(t, []string{"pizza"}, ids)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(b), "relaychat_")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
